// Package format converts model-generated markdown into the markup each
// platform accepts.
package format

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	codeBlockRe = regexp.MustCompile("(?s)```([a-zA-Z]*)\n?(.*?)```")
	inlineRe    = regexp.MustCompile("`([^`]+)`")
	headerRe    = regexp.MustCompile(`(?m)^#{1,6}\s+(.*)$`)
	boldRe      = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe    = regexp.MustCompile(`\*([^*]+)\*`)
	linkRe      = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	bulletRe    = regexp.MustCompile(`(?m)^[\s]*[-*+][\s]+(.*)$`)
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
)

// ToTelegramHTML converts markdown to Telegram-compatible HTML. Code
// spans are pulled out first so the markup rules never touch their
// contents.
func ToTelegramHTML(text string) string {
	if text == "" {
		return ""
	}

	blocks := make(map[string]string)
	text = codeBlockRe.ReplaceAllStringFunc(text, func(m string) string {
		match := codeBlockRe.FindStringSubmatch(m)
		id := fmt.Sprintf("{CB-%d}", len(blocks))
		escaped := EscapeHTML(match[2])
		if match[1] != "" {
			blocks[id] = fmt.Sprintf("<pre><code class=\"language-%s\">%s</code></pre>", match[1], escaped)
		} else {
			blocks[id] = fmt.Sprintf("<pre><code>%s</code></pre>", escaped)
		}
		return id
	})
	text = inlineRe.ReplaceAllStringFunc(text, func(m string) string {
		match := inlineRe.FindStringSubmatch(m)
		id := fmt.Sprintf("{IL-%d}", len(blocks))
		blocks[id] = fmt.Sprintf("<code>%s</code>", EscapeHTML(match[1]))
		return id
	})

	text = EscapeHTML(text)
	text = headerRe.ReplaceAllString(text, "<b>$1</b>")
	text = boldRe.ReplaceAllString(text, "<b>$1</b>")
	text = italicRe.ReplaceAllString(text, "<i>$1</i>")
	text = linkRe.ReplaceAllString(text, "<a href=\"$2\">$1</a>")
	text = bulletRe.ReplaceAllString(text, "• $1")

	for id, block := range blocks {
		text = strings.ReplaceAll(text, id, block)
	}
	return text
}

// ToDiscordMarkdown strips any HTML so Discord renders plain markdown.
func ToDiscordMarkdown(text string) string {
	return htmlTagRe.ReplaceAllString(text, "")
}

// ToWhatsAppText reduces markdown to WhatsApp's asterisk-bold plain text.
func ToWhatsAppText(text string) string {
	text = htmlTagRe.ReplaceAllString(text, "")
	text = headerRe.ReplaceAllString(text, "*$1*")
	text = boldRe.ReplaceAllString(text, "*$1*")
	return text
}

// EscapeHTML escapes the characters Telegram's HTML parser treats as
// markup.
func EscapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}
