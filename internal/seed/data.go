package seed

import "github.com/hitoshi/fitzone/internal/model"

// Plans は初期投入する会員プラン。
func Plans() []*model.MembershipPlan {
	return []*model.MembershipPlan{
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
			IconClass: "plan-icon-blue",
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
			Popular:   true,
			IconClass: "plan-icon-primary",
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
			IconClass: "plan-icon-purple",
		},
	}
}

// Trainers は初期投入するトレーナー。
func Trainers() []*model.Trainer {
	return []*model.Trainer{
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

// Classes は初期投入するクラススケジュール。TrainerIDは投入時に名前から解決する。
func Classes() []*model.Class {
	return []*model.Class{
		{Name: "Morning Yoga", Trainer: "Emily Chen", Type: "Yoga", Difficulty: "Beginner", Duration: 60, Day: "Monday", Time: "06:00", MaxSpots: 15},
		{Name: "HIIT Bootcamp", Trainer: "Mike Rodriguez", Type: "HIIT", Difficulty: "Advanced", Duration: 45, Day: "Monday", Time: "08:00", MaxSpots: 12},
		{Name: "Strength Training", Trainer: "Sarah Johnson", Type: "Strength", Difficulty: "Intermediate", Duration: 60, Day: "Monday", Time: "10:00", MaxSpots: 10},
		{Name: "Evening Flow", Trainer: "Emily Chen", Type: "Yoga", Difficulty: "All Levels", Duration: 75, Day: "Monday", Time: "18:00", MaxSpots: 20},
		{Name: "Cardio Blast", Trainer: "Mike Rodriguez", Type: "Cardio", Difficulty: "Intermediate", Duration: 45, Day: "Monday", Time: "19:30", MaxSpots: 15},
		{Name: "Power Lifting", Trainer: "Sarah Johnson", Type: "Strength", Difficulty: "Advanced", Duration: 90, Day: "Tuesday", Time: "07:00", MaxSpots: 8},
		{Name: "Zumba Dance", Trainer: "Rose Yougt", Type: "Dance", Difficulty: "All Levels", Duration: 60, Day: "Tuesday", Time: "09:00", MaxSpots: 25},
		{Name: "Lunch Break Cardio", Trainer: "Mike Rodriguez", Type: "Cardio", Difficulty: "Beginner", Duration: 30, Day: "Tuesday", Time: "12:00", MaxSpots: 15},
		{Name: "Vinyasa Yoga", Trainer: "Emily Chen", Type: "Yoga", Difficulty: "Intermediate", Duration: 60, Day: "Tuesday", Time: "17:00", MaxSpots: 18},
		{Name: "CrossFit", Trainer: "Sarah Johnson", Type: "HIIT", Difficulty: "Advanced", Duration: 60, Day: "Tuesday", Time: "19:00", MaxSpots: 12},
	}
}
