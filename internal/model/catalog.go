package model

import (
	"strings"
	"time"
)

// TrainerStats はトレーナーの実績値を表す。
type TrainerStats struct {
	Clients int     `bson:"clients" json:"clients"`
	Years   int     `bson:"years" json:"years"`
	Rating  float64 `bson:"rating" json:"rating"`
}

// Trainer はパーソナルトレーナーを表す。
type Trainer struct {
	ID             string       `bson:"_id"`
	Name           string       `bson:"name"`
	Specialization string       `bson:"specialization"`
	Experience     int          `bson:"experience"`
	Image          string       `bson:"image,omitempty"`
	Bio            string       `bson:"bio,omitempty"`
	Certifications []string     `bson:"certifications"`
	Stats          TrainerStats `bson:"stats"`
	HourlyRate     float64      `bson:"hourly_rate"`
	CreatedAt      time.Time    `bson:"created_at"`
}

// Class は曜日・時刻ごとに開催されるグループクラスを表す。
type Class struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Trainer     string    `bson:"trainer"`
	TrainerID   string    `bson:"trainer_id,omitempty"`
	Type        string    `bson:"type"`
	Difficulty  string    `bson:"difficulty"`
	Duration    int       `bson:"duration"`
	Day         string    `bson:"day"`
	Time        string    `bson:"time"`
	MaxSpots    int       `bson:"max_spots"`
	BookedSpots int       `bson:"booked_spots"`
	CreatedAt   time.Time `bson:"created_at"`
}

// SpotsLeft は残り枠数を返す。負値にはならない。
func (c *Class) SpotsLeft() int {
	left := c.MaxSpots - c.BookedSpots
	if left < 0 {
		return 0
	}
	return left
}

// クラス種別
var ClassTypes = []string{"Yoga", "Cardio", "Strength", "HIIT", "Dance"}

// 難易度
var ClassDifficulties = []string{"Beginner", "Intermediate", "Advanced", "All Levels"}

// Weekdays はクラススケジュールで使用する曜日名の一覧。
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// NormalizeWeekday は大文字小文字を無視して曜日名を正規化する。
// 該当しない場合はokにfalseを返す。
func NormalizeWeekday(day string) (string, bool) {
	for _, d := range Weekdays {
		if strings.EqualFold(d, strings.TrimSpace(day)) {
			return d, true
		}
	}
	return "", false
}

// WeekdayOf は "YYYY-MM-DD" 形式の日付から曜日名を返す。
// 解析できない場合は空文字列を返す。
func WeekdayOf(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return ""
	}
	return t.Weekday().String()
}
