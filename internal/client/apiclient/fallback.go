package apiclient

import (
	"strconv"

	"github.com/hitoshi/fitzone/internal/client/wire"
	"github.com/hitoshi/fitzone/internal/model"
)

// FallbackPlans はAPIに到達できない場合に表示する会員プラン。
func FallbackPlans() []wire.Plan {
	return []wire.Plan{
		{
			ID:     "basic-plan",
			Name:   "Basic",
			Price:  2000,
			Period: model.PeriodMonth,
			Features: []string{
				"Access to gym equipment",
				"Locker room access",
				"Basic fitness assessment",
				"Mobile app access",
				"24/7 gym access",
			},
		},
		{
			ID:     "premium-plan",
			Name:   "Premium",
			Price:  5000,
			Period: model.PeriodMonth,
			Features: []string{
				"Everything in Basic",
				"Personal trainer (2 sessions/month)",
				"Group fitness classes",
				"Nutrition consultation",
				"Guest passes (2/month)",
				"Sauna & steam room access",
			},
			Popular: true,
		},
		{
			ID:     "elite-plan",
			Name:   "Elite",
			Price:  8000,
			Period: model.PeriodMonth,
			Features: []string{
				"Everything in Premium",
				"Unlimited personal training",
				"Custom meal plans",
				"Priority class booking",
				"Massage therapy (1/month)",
				"VIP lounge access",
				"Unlimited guest passes",
			},
		},
	}
}

// FallbackTrainers はAPIに到達できない場合に表示するトレーナー。
func FallbackTrainers() []wire.Trainer {
	return []wire.Trainer{
		{
			ID:             "trainer-1",
			Name:           "Sarah Johnson",
			Specialization: "Strength Training & Powerlifting",
			Experience:     8,
			Image:          "https://i.pinimg.com/736x/6a/a7/6c/6aa76cca9f2a4ce7458902851b89e1b0.jpg",
			Bio:            "Former Olympic weightlifter with expertise in strength training and powerlifting. Helped 200+ clients achieve their strength goals.",
			Certifications: []string{"NASM-CPT", "CSCS", "Olympic Lifting"},
			Stats:          model.TrainerStats{Clients: 200, Years: 8, Rating: 4.9},
			HourlyRate:     85,
		},
		{
			ID:             "trainer-2",
			Name:           "Mike Rodriguez",
			Specialization: "HIIT & Cardio Training",
			Experience:     6,
			Image:          "https://i.pinimg.com/1200x/88/d1/1a/88d11a3428462b2e143d8c4a28af7a60.jpg",
			Bio:            "High-energy trainer specializing in HIIT workouts and cardiovascular conditioning. Marathon runner and fitness enthusiast.",
			Certifications: []string{"ACE-CPT", "HIIT Specialist", "Running Coach"},
			Stats:          model.TrainerStats{Clients: 150, Years: 6, Rating: 4.8},
			HourlyRate:     75,
		},
		{
			ID:             "trainer-3",
			Name:           "Emily Chen",
			Specialization: "Yoga & Flexibility",
			Experience:     10,
			Image:          "https://i.pinimg.com/1200x/a5/48/6e/a5486e5ceec98dc2eb463c447ff86994.jpg",
			Bio:            "Certified yoga instructor with a focus on flexibility, mindfulness, and holistic wellness. Trained in multiple yoga disciplines.",
			Certifications: []string{"RYT-500", "Yin Yoga", "Meditation"},
			Stats:          model.TrainerStats{Clients: 300, Years: 10, Rating: 5.0},
			HourlyRate:     70,
		},
		{
			ID:             "trainer-4",
			Name:           "Rose Yougt",
			Specialization: "Bodybuilding & Nutrition",
			Experience:     12,
			Image:          "https://i.pinimg.com/1200x/2d/5d/1f/2d5d1ff0cafd1dff0a8d3e6b09c5af73.jpg",
			Bio:            "Professional bodybuilder and nutrition expert. Specializes in muscle building, cutting, and competition preparation.",
			Certifications: []string{"IFBB Pro", "Nutrition Specialist", "Contest Prep"},
			Stats:          model.TrainerStats{Clients: 180, Years: 12, Rating: 4.9},
			HourlyRate:     95,
		},
	}
}

// FallbackClasses はAPIに到達できない場合に表示するクラス。曜日・時間ごとに1件。
func FallbackClasses() []wire.Class {
	type slot struct{ day, time string }

	yoga := []slot{
		{"Monday", "9:00 AM"}, {"Monday", "6:00 PM"},
		{"Wednesday", "9:00 AM"}, {"Wednesday", "6:00 PM"},
		{"Friday", "9:00 AM"}, {"Friday", "6:00 PM"},
	}
	hiit := []slot{
		{"Tuesday", "7:00 AM"}, {"Tuesday", "7:00 PM"},
		{"Thursday", "7:00 AM"}, {"Thursday", "7:00 PM"},
		{"Saturday", "10:00 AM"},
	}

	classes := make([]wire.Class, 0, len(yoga)+len(hiit))
	for i, s := range yoga {
		classes = append(classes, wire.Class{
			ID:          "class-yoga-" + strconv.Itoa(i+1),
			Name:        "Morning Yoga Flow",
			Trainer:     "Sarah Johnson",
			TrainerID:   "trainer-1",
			Type:        "Yoga",
			Difficulty:  "Beginner",
			Duration:    60,
			Day:         s.day,
			Time:        s.time,
			MaxSpots:    20,
			BookedSpots: 12,
			SpotsLeft:   8,
		})
	}
	for i, s := range hiit {
		classes = append(classes, wire.Class{
			ID:          "class-hiit-" + strconv.Itoa(i+1),
			Name:        "HIIT Blast",
			Trainer:     "Mike Wilson",
			TrainerID:   "trainer-2",
			Type:        "Cardio",
			Difficulty:  "Advanced",
			Duration:    45,
			Day:         s.day,
			Time:        s.time,
			MaxSpots:    15,
			BookedSpots: 8,
			SpotsLeft:   7,
		})
	}
	return classes
}
