package progress

import "fmt"

// Tier is the severity classification of a student's pace metric. It is
// recomputed from the metric every time and never persisted.
type Tier int

const (
	Superior Tier = iota
	OnTrack
	SmallProblems
	Problems
	CriticalGap
)

// Classify maps the expected-result metric to a tier using half-open
// intervals, first match wins:
//
//	metric > 3          Superior
//	0 <= metric <= 3    OnTrack
//	-4 <= metric < 0    SmallProblems
//	-10 <= metric < -4  Problems
//	metric < -10        CriticalGap
func Classify(metric float64) Tier {
	switch {
	case metric > 3:
		return Superior
	case metric >= 0:
		return OnTrack
	case metric >= -4:
		return SmallProblems
	case metric >= -10:
		return Problems
	default:
		return CriticalGap
	}
}

// String returns the user-visible tier label.
func (t Tier) String() string {
	switch t {
	case Superior:
		return "Superior"
	case OnTrack:
		return "On track"
	case SmallProblems:
		return "Small problems"
	case Problems:
		return "Problems"
	case CriticalGap:
		return "Critical gap"
	default:
		return "Unknown"
	}
}

// personaPrompts holds the fixed model instruction per tier. Static data,
// authored once; tone and framing only, no logic.
var personaPrompts = map[Tier]string{
	Superior: "This means that the student is significantly ahead of the pace of the course. " +
		"Generate an encouraging message which praises him for his excellent results and motivation to learn.",
	OnTrack: "This means that the student is going exactly at the pace of the course. " +
		"Generate a positive message which confirms that he is doing everything right and supports him.",
	SmallProblems: "This means that the student is slightly behind the pace of the course. " +
		"Generate a soft motivating message with a light humorous rebuke that will encourage him to catch up.",
	Problems: "This means that the student is lagging behind the pace of the course. " +
		"Generate a half-joking message which will indicate the problem of lagging and the importance of solving it, " +
		"but at the same time support the student and say that it's okay and it could have been worse.",
	CriticalGap: "This means a critical lag behind the pace of the course. " +
		"Generate a strict but constructive message which will seriously indicate the catastrophism of the situation " +
		"and the need for urgent actions to remedy the situation. Add specific tips for organizing training.",
}

// PersonaPrompt returns the fixed instruction string for the tier.
func (t Tier) PersonaPrompt() string {
	return personaPrompts[t]
}

// Prompt builds the full model instruction for a concrete metric value.
func Prompt(metric float64) string {
	return fmt.Sprintf("Student has Expected Result = %g. %s", metric, Classify(metric).PersonaPrompt())
}
