package locale

// Pick returns the text matching the request language, defaulting to English.
func Pick(language, english, chinese string) string {
	if NormalizeLanguage(language) == LanguageChinese {
		if chinese != "" {
			return chinese
		}
		return english
	}
	if english != "" {
		return english
	}
	return chinese
}

var catalog = map[string][2]string{
	"board.title":            {"Board", "积分榜"},
	"board.templates":        {"Templates", "模板"},
	"board.activities":       {"Recent activity", "最近活动"},
	"board.leaderboard":      {"Leaderboard", "排行榜"},
	"board.points":           {"points", "分"},
	"board.empty":            {"No activity yet.", "暂无活动记录"},
	"board.challenge":        {"Challenge", "挑战"},
	"notify.enable":          {"Enable notifications", "开启通知"},
	"login.title":            {"Admin Login", "管理员登录"},
	"login.email":            {"Email", "邮箱"},
	"login.password":         {"Password", "密码"},
	"login.submit":           {"Sign in", "登录"},
	"login.invalid":          {"Invalid email or password", "邮箱或密码错误"},
	"login.session":          {"Failed to save session", "会话保存失败"},
	"nav.logout":             {"Sign out", "退出登录"},
	"nav.login":              {"Admin", "管理"},
	"error.notFound":         {"Page not found", "页面不存在"},
	"manifest.description":   {"Track challenges and points", "记录挑战与积分"},
	"notification.newRecord": {"New activity", "新的活动"},
}

// T 从内置词表中取出对应语言的文案，未登记的键原样返回。
func T(language, key string) string {
	entry, ok := catalog[key]
	if !ok {
		return key
	}
	return Pick(language, entry[0], entry[1])
}

// Messages 返回指定语言的全部文案，供模板一次性注入。
func Messages(language string) map[string]string {
	messages := make(map[string]string, len(catalog))
	for key := range catalog {
		messages[key] = T(language, key)
	}
	return messages
}
