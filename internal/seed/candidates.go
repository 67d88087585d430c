package seed

// Sample is a seed candidate.
type Sample struct {
	Name            string
	YearsExperience int
	Skills          []string
}

// SampleCandidates is the fixed demo roster.
var SampleCandidates = []Sample{
	{"Jordan Miller", 8, []string{"Safety Compliance", "Lean Manufacturing", "Waste Management"}},
	{"Alex Rivera", 12, []string{"Team Leadership", "ISO 14001", "Process Optimization"}},
	{"Casey Smith", 5, []string{"Quality Control", "OSHA Standards", "Equipment Maintenance"}},
	{"Morgan Chen", 15, []string{"Supply Chain Management", "Waste Management", "Lean Manufacturing"}},
	{"Taylor Brooks", 3, []string{"Safety Compliance", "Data Analysis", "Waste Management"}},
	{"Riley Quinn", 10, []string{"Team Leadership", "Hazardous Material Handling", "ISO 14001"}},
	{"Peyton Vance", 7, []string{"Process Optimization", "Quality Control", "Lean Manufacturing"}},
	{"Skyler Lane", 9, []string{"Waste Management", "Safety Compliance", "OSHA Standards"}},
	{"Avery Reed", 11, []string{"Equipment Maintenance", "Team Leadership", "Data Analysis"}},
	{"Parker Gray", 6, []string{"Hazardous Material Handling", "Safety Compliance", "Quality Control"}},
	{"Dakota Hayes", 14, []string{"Lean Manufacturing", "ISO 14001", "Process Optimization"}},
	{"Charlie Rose", 4, []string{"Waste Management", "Equipment Maintenance", "Safety Compliance"}},
	{"Emerson Cole", 13, []string{"Team Leadership", "Supply Chain Management", "Waste Management"}},
	{"Finley Blair", 2, []string{"Data Analysis", "Safety Compliance", "Quality Control"}},
	{"Hayden Frost", 12, []string{"Lean Manufacturing", "OSHA Standards", "Process Optimization"}},
	{"Justice Moon", 8, []string{"Waste Management", "Hazardous Material Handling", "Safety Compliance"}},
	{"Kendall Star", 5, []string{"Team Leadership", "ISO 14001", "Quality Control"}},
	{"Lennon Sky", 10, []string{"Equipment Maintenance", "Lean Manufacturing", "Waste Management"}},
	{"Phoenix Sun", 7, []string{"Safety Compliance", "Process Optimization", "Data Analysis"}},
	{"Reese Rain", 9, []string{"OSHA Standards", "Waste Management", "Team Leadership"}},
	{"Sage Wind", 11, []string{"ISO 14001", "Hazardous Material Handling", "Quality Control"}},
	{"Tatum Stone", 6, []string{"Lean Manufacturing", "Safety Compliance", "Process Optimization"}},
	{"Zion Lake", 14, []string{"Waste Management", "Equipment Maintenance", "Team Leadership"}},
	{"Amari Hill", 3, []string{"Data Analysis", "Safety Compliance", "OSHA Standards"}},
	{"Bellamy Wood", 13, []string{"Lean Manufacturing", "ISO 14001", "Waste Management"}},
	{"Campbell Field", 4, []string{"Quality Control", "Hazardous Material Handling", "Safety Compliance"}},
	{"Denver Park", 12, []string{"Team Leadership", "Process Optimization", "Equipment Maintenance"}},
	{"Ellis Glen", 8, []string{"Waste Management", "Lean Manufacturing", "Safety Compliance"}},
	{"Frankie Dale", 5, []string{"OSHA Standards", "Quality Control", "Data Analysis"}},
	{"Gentry Lane", 10, []string{"ISO 14001", "Team Leadership", "Waste Management"}},
	{"Harlow West", 7, []string{"Safety Compliance", "Lean Manufacturing", "Process Optimization"}},
	{"Indigo East", 9, []string{"Waste Management", "Hazardous Material Handling", "Quality Control"}},
	{"Jules North", 11, []string{"Equipment Maintenance", "Safety Compliance", "Team Leadership"}},
	{"Karsyn South", 6, []string{"Lean Manufacturing", "OSHA Standards", "Waste Management"}},
	{"Legacy Port", 14, []string{"ISO 14001", "Process Optimization", "Safety Compliance"}},
	{"Marlowe Bay", 2, []string{"Quality Control", "Waste Management", "Data Analysis"}},
	{"Nova Cape", 13, []string{"Team Leadership", "Lean Manufacturing", "Hazardous Material Handling"}},
	{"Oakley Shore", 3, []string{"Safety Compliance", "Equipment Maintenance", "Waste Management"}},
	{"Pax Reef", 12, []string{"Process Optimization", "ISO 14001", "Quality Control"}},
	{"Quinn Tide", 8, []string{"Waste Management", "Safety Compliance", "Lean Manufacturing"}},
}
