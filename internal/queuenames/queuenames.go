package queuenames

const (
	// DayIngest collects every cut from the videos published on one day.
	// Its payload is made with jobqueue.FormatPayload("day", {day, month}).
	DayIngest = "day_ingest"
)

var Priority = []string{
	DayIngest,
}
