package models

import "strings"

// Canonical exercise types in the postpartum recovery program.
const (
	ExercisePelvicTilt    = "pelvic_tilt"
	ExerciseBridge        = "bridge"
	ExerciseShoulderRaise = "shoulder_raise"
	ExerciseHeelSlide     = "heel_slide"
	ExerciseCatCow        = "cat_cow"
	ExerciseSquat         = "squat"
	ExerciseWallPushup    = "wall_pushup"
)

// exerciseAliasMap maps lowercased display and localized exercise names to
// their canonical types. Covers the capture app's English, German, French,
// Spanish and Portuguese locales.
var exerciseAliasMap = map[string]string{
	// English
	"pelvic tilt":    ExercisePelvicTilt,
	"bridge":         ExerciseBridge,
	"glute bridge":   ExerciseBridge,
	"shoulder raise": ExerciseShoulderRaise,
	"arm raise":      ExerciseShoulderRaise,
	"heel slide":     ExerciseHeelSlide,
	"cat cow":        ExerciseCatCow,
	"cat-cow":        ExerciseCatCow,
	"squat":          ExerciseSquat,
	"wall pushup":    ExerciseWallPushup,
	"wall push-up":   ExerciseWallPushup,

	// German
	"beckenkippung":   ExercisePelvicTilt,
	"brücke":          ExerciseBridge,
	"schulterheben":   ExerciseShoulderRaise,
	"fersengleiten":   ExerciseHeelSlide,
	"katze-kuh":       ExerciseCatCow,
	"kniebeuge":       ExerciseSquat,
	"wandliegestütze": ExerciseWallPushup,

	// French
	"bascule du bassin":     ExercisePelvicTilt,
	"pont":                  ExerciseBridge,
	"élévation des épaules": ExerciseShoulderRaise,
	"glissement du talon":   ExerciseHeelSlide,
	"chat-vache":            ExerciseCatCow,
	"accroupissement":       ExerciseSquat,
	"pompe murale":          ExerciseWallPushup,

	// Spanish
	"inclinación pélvica":   ExercisePelvicTilt,
	"puente":                ExerciseBridge,
	"elevación de hombros":  ExerciseShoulderRaise,
	"deslizamiento de talón": ExerciseHeelSlide,
	"gato-vaca":             ExerciseCatCow,
	"sentadilla":            ExerciseSquat,
	"flexión de pared":      ExerciseWallPushup,

	// Portuguese (puente/ponte differ, gato-vaca shared with Spanish)
	"inclinação pélvica": ExercisePelvicTilt,
	"ponte":              ExerciseBridge,
	"elevação de ombros": ExerciseShoulderRaise,
	"agachamento":        ExerciseSquat,
	"flexão na parede":   ExerciseWallPushup,
}

// NormalizeExerciseType maps a possibly-localized or display-form exercise
// name to its canonical type. Canonical types pass through. Returns the
// canonical type and true if recognized, or the trimmed input and false if
// unknown.
func NormalizeExerciseType(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	lower := strings.ToLower(trimmed)

	switch lower {
	case ExercisePelvicTilt, ExerciseBridge, ExerciseShoulderRaise,
		ExerciseHeelSlide, ExerciseCatCow, ExerciseSquat, ExerciseWallPushup:
		return lower, true
	}
	if canonical, ok := exerciseAliasMap[lower]; ok {
		return canonical, true
	}
	// Underscore forms like "Pelvic_Tilt" arrive from older clients.
	if canonical, ok := exerciseAliasMap[strings.ReplaceAll(lower, "_", " ")]; ok {
		return canonical, true
	}
	return trimmed, false
}
