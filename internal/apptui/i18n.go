package apptui

import "github.com/tOgg1/anyrun/internal/models"

// Message keys.
const (
	msgTitle = iota
	msgTabAll
	msgTabRunning
	msgTabStopped
	msgColName
	msgColStatus
	msgColPID
	msgColPort
	msgColType
	msgColUptime
	msgSearch
	msgSort
	msgPage
	msgSelected
	msgNoApps
	msgNoMatch
	msgLoginTitle
	msgUsername
	msgPassword
	msgLoginHint
	msgAddTitle
	msgEditTitle
	msgPasswdTitle
	msgOldPassword
	msgNewPassword
	msgConfirmPassword
	msgFormHint
	msgConfirmHint
	msgHelpTitle
	msgKeysShort
	msgFirstLogin
	msgBusy
	msgLastPoll
	msgNeverPolled
	msgStatusRunning
	msgStatusStopped
	msgStatusUnknown
)

var catalog = map[models.Language][]string{
	models.LanguageEnglish: {
		msgTitle:           "anyrun console",
		msgTabAll:          "All",
		msgTabRunning:      "Running",
		msgTabStopped:      "Stopped",
		msgColName:         "NAME",
		msgColStatus:       "STATUS",
		msgColPID:          "PID",
		msgColPort:         "PORT",
		msgColType:         "TYPE",
		msgColUptime:       "UPTIME",
		msgSearch:          "search",
		msgSort:            "sort",
		msgPage:            "page",
		msgSelected:        "selected",
		msgNoApps:          "No applications configured. Press a to add one.",
		msgNoMatch:         "No applications match. Press / to change the search.",
		msgLoginTitle:      "Log in",
		msgUsername:        "Username",
		msgPassword:        "Password",
		msgLoginHint:       "enter submit  tab next field  ctrl+c quit",
		msgAddTitle:        "Add application",
		msgEditTitle:       "Edit application",
		msgPasswdTitle:     "Change password",
		msgOldPassword:     "Current password",
		msgNewPassword:     "New password",
		msgConfirmPassword: "Confirm password",
		msgFormHint:        "tab/shift+tab move  space toggle  enter save  esc cancel",
		msgConfirmHint:     "y confirm  n cancel",
		msgHelpTitle:       "Keys",
		msgKeysShort:       "/ search  s/S/R start/stop/restart  a add  e edit  D delete  ? help  q quit",
		msgFirstLogin:      "You are using the initial password. Press P to change it.",
		msgBusy:            "working",
		msgLastPoll:        "updated",
		msgNeverPolled:     "not yet updated",
		msgStatusRunning:   "running",
		msgStatusStopped:   "stopped",
		msgStatusUnknown:   "unknown",
	},
	models.LanguageChinese: {
		msgTitle:           "anyrun 控制台",
		msgTabAll:          "全部",
		msgTabRunning:      "运行中",
		msgTabStopped:      "已停止",
		msgColName:         "名称",
		msgColStatus:       "状态",
		msgColPID:          "PID",
		msgColPort:         "端口",
		msgColType:         "类型",
		msgColUptime:       "运行时长",
		msgSearch:          "搜索",
		msgSort:            "排序",
		msgPage:            "页",
		msgSelected:        "已选",
		msgNoApps:          "尚未配置应用。按 a 添加。",
		msgNoMatch:         "没有匹配的应用。按 / 修改搜索。",
		msgLoginTitle:      "登录",
		msgUsername:        "用户名",
		msgPassword:        "密码",
		msgLoginHint:       "enter 提交  tab 下一项  ctrl+c 退出",
		msgAddTitle:        "添加应用",
		msgEditTitle:       "编辑应用",
		msgPasswdTitle:     "修改密码",
		msgOldPassword:     "当前密码",
		msgNewPassword:     "新密码",
		msgConfirmPassword: "确认密码",
		msgFormHint:        "tab/shift+tab 切换  space 开关  enter 保存  esc 取消",
		msgConfirmHint:     "y 确认  n 取消",
		msgHelpTitle:       "快捷键",
		msgKeysShort:       "/ 搜索  s/S/R 启动/停止/重启  a 添加  e 编辑  D 删除  ? 帮助  q 退出",
		msgFirstLogin:      "当前使用的是初始密码，按 P 修改。",
		msgBusy:            "处理中",
		msgLastPoll:        "更新于",
		msgNeverPolled:     "尚未更新",
		msgStatusRunning:   "运行中",
		msgStatusStopped:   "已停止",
		msgStatusUnknown:   "未知",
	},
}

func tr(lang models.Language, key int) string {
	if table, ok := catalog[lang]; ok && key < len(table) && table[key] != "" {
		return table[key]
	}
	return catalog[models.LanguageEnglish][key]
}

func statusText(lang models.Language, status models.Status) string {
	switch status {
	case models.StatusRunning:
		return tr(lang, msgStatusRunning)
	case models.StatusStopped:
		return tr(lang, msgStatusStopped)
	default:
		return tr(lang, msgStatusUnknown)
	}
}
