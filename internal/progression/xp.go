package progression

import "math"

// Action is something a user does that earns XP.
type Action string

const (
	ActionFirstSegment    Action = "first-segment"
	ActionNewSegment      Action = "new-segment"
	ActionSegmentLiked    Action = "segment-liked"
	ActionCommentReceived Action = "comment-received"
	ActionThreadCompleted Action = "thread-completed"
	ActionBadgeEarned     Action = "badge-earned"
	ActionDailyLogin      Action = "daily-login"
	// ActionConsecutiveDays is priced per day of streak; pass the streak
	// length as the multiplier.
	ActionConsecutiveDays Action = "consecutive-days"
)

// XPRewards is the base reward of each action.
var XPRewards = map[Action]int{
	ActionFirstSegment:    50,
	ActionNewSegment:      25,
	ActionSegmentLiked:    5,
	ActionCommentReceived: 3,
	ActionThreadCompleted: 100,
	ActionBadgeEarned:     75,
	ActionDailyLogin:      10,
	ActionConsecutiveDays: 5,
}

// CalculateXPGain returns the action's base reward times multiplier.
//
// Fractional results are rounded half away from zero (37.5 -> 38). Negative
// results are clamped to 0 since XP never decreases. Unknown actions are
// worth nothing.
func CalculateXPGain(action Action, multiplier float64) int {
	base, ok := XPRewards[action]
	if !ok {
		return 0
	}
	gain := int(math.Round(float64(base) * multiplier))
	if gain < 0 {
		return 0
	}
	return gain
}

// XPGain is CalculateXPGain with a multiplier of 1.
func XPGain(action Action) int {
	return CalculateXPGain(action, 1)
}
