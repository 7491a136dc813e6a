package enums

import "fmt"

// FeedbackVote is a thumbs-up or thumbs-down rating on a purchased item.
type FeedbackVote string

const (
	FeedbackVoteUp   FeedbackVote = "up"
	FeedbackVoteDown FeedbackVote = "down"
)

var validFeedbackVotes = []FeedbackVote{
	FeedbackVoteUp,
	FeedbackVoteDown,
}

// String implements fmt.Stringer.
func (v FeedbackVote) String() string {
	return string(v)
}

// IsValid reports whether the value is a known FeedbackVote.
func (v FeedbackVote) IsValid() bool {
	for _, candidate := range validFeedbackVotes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseFeedbackVote converts raw input into a FeedbackVote.
func ParseFeedbackVote(value string) (FeedbackVote, error) {
	for _, candidate := range validFeedbackVotes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid feedback vote %q", value)
}
