package locale

import (
	"strings"

	"golang.org/x/text/language"
)

const (
	LanguageEnglish = "en"
	LanguageChinese = "zh"
)

// DefaultLanguage 是所有来源都无法判定时的回退语言
const DefaultLanguage = LanguageEnglish

// 第一个条目即匹配失败时的默认值
var supported = []language.Tag{
	language.English,
	language.Chinese,
}

var matcher = language.NewMatcher(supported)

var chineseRegions = map[string]struct{}{
	"CN": {},
	"TW": {},
	"HK": {},
	"MO": {},
	"SG": {},
}

type Preference struct {
	Language string
	Locale   string
	HTMLLang string
}

// NormalizeLanguage 把任意 BCP 47 标签或别名归一为受支持的语言，不支持时返回空串。
func NormalizeLanguage(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if trimmed == "cn" {
		return LanguageChinese
	}

	tag, err := language.Parse(strings.ReplaceAll(trimmed, "_", "-"))
	if err != nil {
		return ""
	}
	return fromTag(tag)
}

func LanguageFromCountryCode(code string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		return ""
	}
	if _, ok := chineseRegions[trimmed]; ok {
		return LanguageChinese
	}
	return LanguageEnglish
}

// LanguageFromAcceptLanguage 按 q 值匹配 Accept-Language，没有可接受的语言时返回空串。
func LanguageFromAcceptLanguage(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	tag, _, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return ""
	}
	return fromTag(tag)
}

func PreferenceForLanguage(language string) Preference {
	normalized := NormalizeLanguage(language)
	if normalized == LanguageChinese {
		return Preference{Language: LanguageChinese, Locale: "zh_CN", HTMLLang: "zh-CN"}
	}
	return Preference{Language: LanguageEnglish, Locale: "en_US", HTMLLang: "en-US"}
}

func fromTag(tag language.Tag) string {
	base, _ := tag.Base()
	switch base.String() {
	case LanguageChinese:
		return LanguageChinese
	case LanguageEnglish:
		return LanguageEnglish
	}
	return ""
}
