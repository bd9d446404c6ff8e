package roadmap

// Seed returns the starter document written into an empty store on first
// boot, so a fresh deployment renders something editable instead of a 404.
func Seed() *Document {
	return &Document{
		Sections: []Section{
			{
				ID:     "getting-started",
				Title:  "Getting Started",
				Color:  ColorBlue,
				Active: true,
				Order:  1,
				Phases: map[string]*Phase{
					"phase1": {
						Title: "Phase 1 - Foundations",
						Order: 1,
						Weeks: map[string]*Week{
							"week1": {
								Title: "Week 1",
								Order: 1,
								Badge: "Done",
								Tasks: []Task{
									{ID: "gs-w1t1", Text: "Set up the project and CI", Icon: "Code", Completed: true, Votes: 0},
									{ID: "gs-w1t2", Text: "Define the data model", Icon: "Database", Completed: true, Votes: 0},
								},
							},
							"week2": {
								Title: "Week 2",
								Order: 2,
								Tasks: []Task{
									{ID: "gs-w2t1", Text: "First end-to-end flow", Icon: "CheckCircle", Completed: false, Votes: 0},
									{ID: "gs-w2t2", Text: "Collect early feedback", Icon: "Users", Completed: false, Votes: 0},
								},
							},
						},
					},
				},
			},
		},
	}
}
