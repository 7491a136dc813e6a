package enums

import "fmt"

// ItemCondition captures whether a listing is for a new or used item.
type ItemCondition string

const (
	ItemConditionNew  ItemCondition = "new"
	ItemConditionUsed ItemCondition = "used"
)

var validItemConditions = []ItemCondition{
	ItemConditionNew,
	ItemConditionUsed,
}

// String implements fmt.Stringer.
func (c ItemCondition) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ItemCondition.
func (c ItemCondition) IsValid() bool {
	for _, candidate := range validItemConditions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseItemCondition converts raw input into an ItemCondition.
func ParseItemCondition(value string) (ItemCondition, error) {
	for _, candidate := range validItemConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item condition %q", value)
}
