package utils

import "time"

const DateLayout = "2006-01-02"

// SchoolTZ is the campus time zone. Mexico dropped daylight saving in 2022.
var SchoolTZ = time.FixedZone("CST", -6*60*60)

func SchoolNow() time.Time {
	return time.Now().In(SchoolTZ)
}

// Today returns the current campus date as yyyy-MM-dd.
func Today() string {
	return SchoolNow().Format(DateLayout)
}

func MustParseDate(dateStr string) time.Time {
	t, _ := time.ParseInLocation(DateLayout, dateStr, SchoolTZ)
	return t
}
