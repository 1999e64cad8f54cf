package avatar

import (
	"fmt"
	"strings"
)

// Talking animation variants cycled per turn index.
const animationVariants = 3

// DefaultExpression is used when an emotion label has no table entry.
const DefaultExpression = "default"

// ExpressionFor maps a reply-emotion label to a facial expression by exact
// case-insensitive match. Unknown labels fall back to the default face.
func ExpressionFor(emotion string) string {
	switch strings.ToLower(strings.TrimSpace(emotion)) {
	case "joy", "love":
		return "smile"
	case "sadness":
		return "sad"
	case "anger":
		return "angry"
	case "fear", "surprise":
		return "surprised"
	default:
		return DefaultExpression
	}
}

// AnimationFor picks one of the talking animations from the turn index, so
// consecutive turns cycle through variants without any state.
func AnimationFor(turnIndex int) string {
	if turnIndex < 0 {
		turnIndex = -turnIndex
	}
	return fmt.Sprintf("Talking_%d", turnIndex%animationVariants)
}
