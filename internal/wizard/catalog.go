package wizard

// Rating bounds shared by the default sliders
const (
	RatingMin             = 1
	RatingMax             = 5
	DefaultScalarRating   = 3
	DefaultCategoryRating = 1

	MaxElevatedInterests = 3
	MaxGoals             = 4
)

// Connection type options
const (
	ConnectionFriendship    = "friendship"
	ConnectionProfessional  = "professional"
	ConnectionMentorship    = "mentorship"
	ConnectionCollaboration = "collaboration"
	ConnectionCommunity     = "community"
)

// Meeting format options
const (
	MeetingInPerson = "in_person"
	MeetingVirtual  = "virtual"
	MeetingHybrid   = "hybrid"
)

// DefaultCatalog returns the eleven-step onboarding questionnaire
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultSteps()...)
	if err != nil {
		panic(err) // static data
	}
	return c
}

func scalarStep(number int, key, title, prompt, field, minLabel, maxLabel string) Step {
	return Step{
		Number:   number,
		Key:      key,
		Title:    title,
		Prompt:   prompt,
		Kind:     KindScalar,
		Field:    field,
		Min:      RatingMin,
		Max:      RatingMax,
		Default:  DefaultScalarRating,
		MinLabel: minLabel,
		MaxLabel: maxLabel,
	}
}

func defaultSteps() []Step {
	return []Step{
		scalarStep(1, "openness", "Openness",
			"How open are you to meeting people outside your usual circles?",
			"openness", "Rarely", "Always"),
		scalarStep(2, "social_energy", "Social energy",
			"How energized do you feel after spending time with new people?",
			"social_energy", "Drained", "Recharged"),
		{
			Number:      3,
			Key:         "interests",
			Title:       "What are you looking for?",
			Prompt:      "Rate up to three areas you most want to grow through new connections.",
			Kind:        KindCategory,
			FieldPrefix: "interest_",
			Options: []Option{
				{Key: "career", Label: "Career"},
				{Key: "friendship", Label: "Friendship"},
				{Key: "mentorship", Label: "Mentorship"},
				{Key: "creative", Label: "Creative projects"},
				{Key: "wellness", Label: "Health & wellness"},
				{Key: "community", Label: "Community"},
			},
			Min:         RatingMin,
			Max:         RatingMax,
			Default:     DefaultCategoryRating,
			MaxElevated: MaxElevatedInterests,
		},
		scalarStep(4, "communication", "Conversation depth",
			"Do you prefer light conversation or deep discussions?",
			"communication_depth", "Light", "Deep"),
		scalarStep(5, "availability", "Availability",
			"How much time can you give to new connections each week?",
			"weekly_availability", "Very little", "Plenty"),
		{
			Number: 6,
			Key:    "connection_type",
			Title:  "Connection type",
			Prompt: "What kind of connection matters most to you right now?",
			Kind:   KindSingle,
			Field:  "connection_type",
			Options: []Option{
				{Key: ConnectionFriendship, Label: "Friendship"},
				{Key: ConnectionProfessional, Label: "Professional network"},
				{Key: ConnectionMentorship, Label: "Mentorship"},
				{Key: ConnectionCollaboration, Label: "Collaboration"},
				{Key: ConnectionCommunity, Label: "Community"},
			},
		},
		{
			Number: 7,
			Key:    "meeting_format",
			Title:  "Meeting format",
			Prompt: "How do you prefer to meet?",
			Kind:   KindSingle,
			Field:  "meeting_format",
			Options: []Option{
				{Key: MeetingInPerson, Label: "In person"},
				{Key: MeetingVirtual, Label: "Virtual"},
				{Key: MeetingHybrid, Label: "Either"},
			},
		},
		scalarStep(8, "group_size", "Group size",
			"Do you prefer one-on-one meetups or larger groups?",
			"group_size", "One-on-one", "Big groups"),
		scalarStep(9, "spontaneity", "Spontaneity",
			"Do you like plans made well ahead or last-minute invitations?",
			"spontaneity", "Planned", "Spontaneous"),
		scalarStep(10, "pace", "Pace",
			"How quickly do you like a new connection to develop?",
			"relationship_pace", "Slowly", "Quickly"),
		{
			Number: 11,
			Key:    "goals",
			Title:  "Goals",
			Prompt: "Pick up to four goals for the next few months.",
			Kind:   KindMulti,
			Field:  "goals",
			Options: []Option{
				{Key: "grow_career", Label: "Grow my career"},
				{Key: "find_cofounder", Label: "Find a co-founder"},
				{Key: "learn_skill", Label: "Learn a new skill"},
				{Key: "expand_network", Label: "Expand my network"},
				{Key: "make_friends", Label: "Make friends"},
				{Key: "give_back", Label: "Give back"},
				{Key: "find_mentor", Label: "Find a mentor"},
			},
			MaxSelections: MaxGoals,
		},
	}
}
