package kickapi

import (
	"fmt"
	"regexp"
)

// Kick inlines emotes as [emote:<id>:<name>]. A few common ones map to real
// emoji; the rest render as [name] so the notification stays readable.
var emotePattern = regexp.MustCompile(`\[emote:(\d+):([^\]]+)\]`)

var emojiMap = map[string]string{
	"GiftedYAY":  "🎉",
	"ErectDance": "💃",
}

// TranslateEmotes rewrites emote markup in text.
func TranslateEmotes(text string) string {
	return emotePattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := emotePattern.FindStringSubmatch(m)
		if len(sub) != 3 {
			return m
		}
		if emoji, ok := emojiMap[sub[2]]; ok {
			return emoji
		}
		return "[" + sub[2] + "]"
	})
}

// FirstEmoteURL returns the image URL of the first emote in text, or "" when
// none. Forwarded as the relay's attachment for emote rendering.
func FirstEmoteURL(text string) string {
	sub := emotePattern.FindStringSubmatch(text)
	if len(sub) != 3 {
		return ""
	}
	return fmt.Sprintf("https://files.kick.com/emotes/%s/fullsize", sub[1])
}
