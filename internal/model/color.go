package model

// HighlightColor is the UI accent color derived from the lesson type code.
type HighlightColor string

const (
	ColorYellow HighlightColor = "yellow"
	ColorCyan   HighlightColor = "cyan"
	ColorGreen  HighlightColor = "green"
	ColorRed    HighlightColor = "red"
	ColorBlue   HighlightColor = "blue"
	ColorPurple HighlightColor = "purple"
	ColorGray   HighlightColor = "gray"
)

// ColorForLessonType maps a domain lesson-type code to its highlight color.
// Unrecognized codes fall into the gray bucket; the mapping never fails.
func ColorForLessonType(lessonType string) HighlightColor {
	switch lessonType {
	case "Лк":
		return ColorYellow
	case "Лб":
		return ColorCyan
	case "Пз":
		return ColorGreen
	case "Екз":
		return ColorRed
	case "Конс":
		return ColorBlue
	case "Зал":
		return ColorPurple
	default:
		return ColorGray
	}
}
