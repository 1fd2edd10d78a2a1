package llm

import "strings"

// CleanJSONBlock pulls the JSON payload out of a model response. Markdown
// fences are stripped; when prose surrounds the payload, the first balanced
// {...} object is returned. Responses that start with an array, or contain
// no object at all, come back trimmed but otherwise untouched so the caller
// reports them as the wrong shape.
func CleanJSONBlock(text string) string {
	text = stripFence(strings.TrimSpace(text))

	if strings.HasPrefix(text, "[") {
		return text
	}
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return text
	}
	if obj := balancedObject(text[start:]); obj != "" {
		return obj
	}
	return text
}

// stripFence removes a ```lang ... ``` wrapper. A first line counts as a
// language tag only when it is a single short word.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	body := strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := strings.TrimSpace(body[:nl])
		if len(tag) < 20 && !strings.ContainsAny(tag, " {[") {
			body = body[nl+1:]
		}
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// balancedObject returns the {...} prefix of s, honouring string literals and
// escapes, or "" when the braces never close.
func balancedObject(s string) string {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
