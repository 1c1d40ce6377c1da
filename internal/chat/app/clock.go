package app

import "time"

// 這個變數會在測試時被覆蓋
var timeNow = func() time.Time {
	return time.Now().UTC()
}
