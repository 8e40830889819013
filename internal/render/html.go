package render

import (
	"strconv"
	"strings"

	xhtml "golang.org/x/net/html"
)

// DescriptionToText converts a catalog product description to plain text.
// Descriptions use a small HTML subset: <p>, <br>, <ul>/<ol> with <li>,
// <b>/<strong>, <i>/<em> and <a>. Anything else is reduced to its text.
func DescriptionToText(raw string, width int) string {
	if raw == "" {
		return ""
	}

	tokenizer := xhtml.NewTokenizer(strings.NewReader(raw))
	var sb strings.Builder
	var anchorURL string
	var listDepth int
	var ordered []bool
	var counters []int

	for {
		tt := tokenizer.Next()
		switch tt {
		case xhtml.ErrorToken:
			return wrapText(strings.TrimSpace(sb.String()), width)

		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			t := tokenizer.Token()
			switch t.Data {
			case "p":
				if sb.Len() > 0 {
					sb.WriteString("\n\n")
				}
			case "br":
				sb.WriteString("\n")
			case "b", "strong":
				sb.WriteString("**")
			case "i", "em":
				sb.WriteString("*")
			case "ul", "ol":
				listDepth++
				ordered = append(ordered, t.Data == "ol")
				counters = append(counters, 0)
			case "li":
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(strings.Repeat("  ", max(listDepth-1, 0)))
				if listDepth > 0 && ordered[listDepth-1] {
					counters[listDepth-1]++
					sb.WriteString(strconv.Itoa(counters[listDepth-1]))
					sb.WriteString(". ")
				} else {
					sb.WriteString("• ")
				}
			case "a":
				for _, attr := range t.Attr {
					if attr.Key == "href" {
						anchorURL = attr.Val
					}
				}
			}

		case xhtml.EndTagToken:
			t := tokenizer.Token()
			switch t.Data {
			case "b", "strong":
				sb.WriteString("**")
			case "i", "em":
				sb.WriteString("*")
			case "ul", "ol":
				if listDepth > 0 {
					listDepth--
					ordered = ordered[:listDepth]
					counters = counters[:listDepth]
				}
				if listDepth == 0 {
					sb.WriteString("\n")
				}
			case "a":
				if anchorURL != "" {
					text := strings.TrimSpace(sb.String())
					if !strings.HasSuffix(text, anchorURL) {
						sb.WriteString(" [")
						sb.WriteString(anchorURL)
						sb.WriteString("]")
					}
				}
				anchorURL = ""
			}

		case xhtml.TextToken:
			sb.WriteString(collapseSpace(tokenizer.Token().Data))
		}
	}
}

// collapseSpace folds runs of whitespace into single spaces, keeping a
// leading or trailing space so adjacent inline text stays separated.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// wrapText performs simple word wrapping to the given width. List items
// keep their bullet indentation on continuation lines.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	var result strings.Builder
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}
		indent := leadingIndent(paragraph)
		lead := paragraph[:len(paragraph)-len(strings.TrimLeft(paragraph, " "))]
		result.WriteString(lead)
		lineLen := len(lead)
		for i, word := range words {
			wlen := len([]rune(word))
			if i > 0 && lineLen+1+wlen > width {
				result.WriteString("\n")
				result.WriteString(indent)
				lineLen = len(indent)
			} else if i > 0 {
				result.WriteString(" ")
				lineLen++
			}
			result.WriteString(word)
			lineLen += wlen
		}
		result.WriteString("\n")
	}
	return strings.TrimRight(result.String(), "\n")
}

// leadingIndent returns the continuation indent for a wrapped line.
func leadingIndent(line string) string {
	trimmed := strings.TrimLeft(line, " ")
	pad := len(line) - len(trimmed)
	if strings.HasPrefix(trimmed, "• ") {
		return strings.Repeat(" ", pad+2)
	}
	if i := strings.Index(trimmed, ". "); i > 0 && i <= 3 && allDigits(trimmed[:i]) {
		return strings.Repeat(" ", pad+i+2)
	}
	return strings.Repeat(" ", pad)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
