package translation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"codeberg.org/snonux/surveytranslate/internal/survey"
)

// UnknownLanguage is reported when the API did not name a language
const UnknownLanguage = "Unknown"

const promptTemplate = `Analyze the following survey question and provide:
1. The detected language (language name in English)
2. A confidence score for the detection (0-100)
3. The English translation. Maintain the original meaning and tone.
   If the text is already in English, return it unchanged.

Text: %q

Respond in JSON format only:
{"language": "detected_language_name", "confidence": confidence_score, "translation": "english_translation"}`

// BuildPrompt returns the single prompt sent for one question
func BuildPrompt(text string) string {
	return fmt.Sprintf(promptTemplate, text)
}

// ParseResult extracts the translation from an API answer. The answer may
// wrap the JSON object in prose or Markdown code fences.
func ParseResult(content string) (survey.Translation, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return survey.Translation{}, ErrEmptyResponse
	}

	obj, ok := firstJSONObject(stripFences(content))
	if !ok {
		return survey.Translation{}, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	var fields map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return survey.Translation{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	english := firstString(fields, "translation", "english_translation", "english")
	if english == "" {
		return survey.Translation{}, fmt.Errorf("%w: missing translation", ErrMalformedResponse)
	}

	language := firstString(fields, "language", "detected_language")
	if language == "" {
		language = UnknownLanguage
	}

	confidence, err := NormalizeConfidence(fields["confidence"])
	if err != nil {
		return survey.Translation{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return survey.Translation{
		Language:   language,
		Confidence: confidence,
		English:    english,
	}, nil
}

// NormalizeConfidence turns a JSON confidence value into an integer
// percentage. Numbers, numeric strings and strings like "95%" are accepted.
// A value in [0, 1] written with a decimal point or exponent (0.95, 1.0) is a
// fraction. Integers and "%" strings are already percentages, so 1 and "1%"
// both mean 1. The result is rounded and clamped to 0..100. A missing value
// yields 0.
func NormalizeConfidence(v interface{}) (int, error) {
	var (
		f        float64
		fraction bool
	)

	switch c := v.(type) {
	case nil:
		return 0, nil
	case float64:
		f = c
		fraction = f != math.Trunc(f)
	case float32:
		f = float64(c)
		fraction = f != math.Trunc(f)
	case int:
		f = float64(c)
	case int64:
		f = float64(c)
	case json.Number:
		parsed, err := c.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid confidence %q", c.String())
		}
		f = parsed
		fraction = hasDecimalMark(c.String())
	case string:
		s := strings.TrimSpace(c)
		percent := strings.HasSuffix(s, "%")
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		if s == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid confidence %q", c)
		}
		f = parsed
		fraction = !percent && hasDecimalMark(s)
	default:
		return 0, fmt.Errorf("invalid confidence type %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid confidence %v", f)
	}

	if fraction && f >= 0 && f <= 1 {
		f *= 100
	}

	return int(math.Round(math.Max(0, math.Min(100, f)))), nil
}

func hasDecimalMark(s string) bool {
	return strings.ContainsAny(s, ".eE")
}

// stripFences removes Markdown code fence lines such as ```json
func stripFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}

	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// firstJSONObject returns the first balanced {...} in s, honouring braces
// inside string literals
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false

		for i := start; i < len(s); i++ {
			ch := s[i]
			switch {
			case escaped:
				escaped = false
			case inString && ch == '\\':
				escaped = true
			case ch == '"':
				inString = !inString
			case inString:
			case ch == '{':
				depth++
			case ch == '}':
				depth--
				if depth == 0 {
					candidate := s[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					i = len(s)
				}
			}
		}

		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func firstString(fields map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			if s, ok := v.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					return s
				}
			}
		}
	}
	return ""
}
