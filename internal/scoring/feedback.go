package scoring

// Feedback templates keyed by overall-score band.
const (
	FeedbackExceptional = "Exceptional candidate. Demonstrated proactive safety protocols and deep waste-stream optimization knowledge. High motivation potential."
	FeedbackStrong      = "Strong profile. Good technical grasp of recycling regulations, though crisis management was slightly reactive."
	FeedbackAverage     = "Average candidate. Solid foundation in sustainability but requires more experience in team leadership under pressure."
)

// Feedback returns the template for an overall score: above 90 exceptional,
// above 80 strong, otherwise average. Both bounds are strict.
func Feedback(overall float64) string {
	switch {
	case overall > 90:
		return FeedbackExceptional
	case overall > 80:
		return FeedbackStrong
	default:
		return FeedbackAverage
	}
}
