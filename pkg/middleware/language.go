package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

// LangKey is the gin context key holding the negotiated language.
const LangKey = "lang"

// LanguageMiddleware picks en or fil from ?lang= or Accept-Language.
func LanguageMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 查询参数优先，其次是请求头
		var prefs []language.Tag
		if q := strings.TrimSpace(c.Query("lang")); q != "" {
			if t, err := language.Parse(q); err == nil {
				prefs = append(prefs, t)
			}
		}
		if h := c.GetHeader("Accept-Language"); h != "" {
			if tags, _, err := language.ParseAcceptLanguage(h); err == nil {
				prefs = append(prefs, tags...)
			}
		}
		c.Set(LangKey, pick(prefs))
		c.Next()
	}
}

// Lang returns the language chosen by LanguageMiddleware, "en" when unset.
func Lang(c *gin.Context) string {
	if v := c.GetString(LangKey); v != "" {
		return v
	}
	return "en"
}

// pick returns the first supported preference; Tagalog maps to fil.
func pick(prefs []language.Tag) string {
	for _, t := range prefs {
		base, _ := t.Base()
		switch base.String() {
		case "fil", "tl":
			return "fil"
		case "en":
			return "en"
		}
	}
	return "en"
}
