package lesson

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/scheduleme/backend/core"
	"github.com/scheduleme/backend/core/calendar"
)

var (
	statusTag  = "lessonstatus"
	statusText = "{0} must be one of upcoming, completed, cancelled"

	endAfterStartTag  = "endafterstart"
	endAfterStartText = "{0} must be after the start time"
)

// InitValidators registers the lesson validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	core.RegisterCustomTranslation(validate, translator, endAfterStartTag, endAfterStartText)
	validate.RegisterStructValidation(lessonStructLevelValidation, NewLesson{})
}

func statusValidation(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case StatusUpcoming, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func lessonStructLevelValidation(sl validator.StructLevel) {
	nl := sl.Current().Interface().(NewLesson)
	start, err := calendar.ParseClock(nl.StartTime)
	if err != nil {
		return
	}
	end, err := calendar.ParseClock(nl.EndTime)
	if err != nil {
		return
	}
	if end <= start {
		sl.ReportError(nl.EndTime, "endTime", "EndTime", endAfterStartTag, "")
	}
}
