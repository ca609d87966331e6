package editor

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/tOgg1/anyrun/internal/models"
)

// ImportOptions controls Import.
type ImportOptions struct {
	// Replace overwrites apps whose name already exists. Without it
	// they are skipped.
	Replace bool

	// DryRun validates and reports without saving.
	DryRun bool
}

// ImportResult reports what Import did, or would do on a dry run.
type ImportResult struct {
	Added    []string
	Replaced []string
	Skipped  []string
}

// Changed reports whether the import altered the document.
func (r ImportResult) Changed() bool {
	return len(r.Added)+len(r.Replaced) > 0
}

// Import merges apps into the configuration in a single save. Every app is
// validated before anything is written; names repeated within apps are a
// validation failure.
func (e *Editor) Import(ctx context.Context, apps []models.AppConfig, opts ImportOptions) (ImportResult, error) {
	incoming := make([]models.AppConfig, len(apps))
	problems := &models.ConfigProblems{}
	seen := make(map[string]bool, len(apps))
	for i, app := range apps {
		app = app.Clone()
		app.Normalize()
		field := "apps[" + strconv.Itoa(i) + "]"
		if err := app.Validate(); err != nil {
			problems.Nest(field, err)
		}
		if app.Name != "" && seen[app.Name] {
			problems.Rejectf(field+".name", "duplicate name %q", app.Name)
		}
		seen[app.Name] = true
		incoming[i] = app
	}
	if err := problems.Err(); err != nil {
		return ImportResult{}, e.fail("import", "", &models.Error{Kind: models.KindValidationFailure, Op: "import", Err: err})
	}

	var result ImportResult
	plan := func(doc *models.ConfigDocument) {
		result = ImportResult{}
		for _, app := range incoming {
			switch i := doc.Index(app.Name); {
			case i < 0:
				doc.Apps = append(doc.Apps, app)
				result.Added = append(result.Added, app.Name)
			case opts.Replace:
				doc.Apps[i] = app
				result.Replaced = append(result.Replaced, app.Name)
			default:
				result.Skipped = append(result.Skipped, app.Name)
			}
		}
	}

	if opts.DryRun {
		doc, err := e.store.GetConfig(ctx)
		if err != nil {
			return ImportResult{}, e.fail("import", "", err)
		}
		plan(doc.Clone())
		return result, nil
	}

	err := e.commit(ctx, "import", "", func(doc *models.ConfigDocument) error {
		plan(doc)
		if !result.Changed() {
			return errNoChange
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		return result, nil
	}
	if err != nil {
		return ImportResult{}, err
	}

	e.succeed("import", "", fmt.Sprintf("imported %d apps (%d added, %d replaced, %d skipped)",
		len(result.Added)+len(result.Replaced), len(result.Added), len(result.Replaced), len(result.Skipped)))
	return result, nil
}
