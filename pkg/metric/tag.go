package metric

import "strings"

// Tag constants
const (
	TagEnv            = "env"
	TagService        = "service"
	TagPath           = "path"
	TagMethod         = "method"
	TagHttpStatusCode = "http_status_code"
	TagStage          = "stage"
	TagCandidate      = "candidate"
	TagStatus         = "status"
	TagBackend        = "backend"
	TagOperation      = "operation"
	TagCacheHit       = "cache_hit"

	TagValueSuccess = "success"
	TagValueFailure = "failure"
)

type Tag struct {
	Name  string
	Value string
}

func NewTag(name, value string) Tag {
	return Tag{
		Name:  name,
		Value: value,
	}
}

// BuildTag builds a tag from the given name and value
func BuildTag(tags ...Tag) []string {
	allTags := make([]string, 0, len(tags))
	for _, tag := range tags {
		allTags = append(allTags, TagAsString(tag.Name, tag.Value))
	}
	return allTags
}

// normalizeTagValue sanitizes tag values to prevent parsing issues
func normalizeTagValue(value string) string {
	// "/" is kept as-is to preserve URL paths and repo ids
	problematicChars := []string{":", " ", "\\", ",", "|", "@", "#"}
	normalized := value
	for _, char := range problematicChars {
		normalized = strings.ReplaceAll(normalized, char, "_")
	}
	return normalized
}

// TagAsString renders name:value with the value sanitized.
func TagAsString(name, value string) string {
	return name + ":" + normalizeTagValue(value)
}

// StatusTag tags an outcome as success or failure.
func StatusTag(err error) Tag {
	if err != nil {
		return NewTag(TagStatus, TagValueFailure)
	}
	return NewTag(TagStatus, TagValueSuccess)
}
