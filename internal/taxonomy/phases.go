package taxonomy

// phases is the deploy-time catalog. Ordering here is the ordering served
// to clients.
var phases = []Phase{
	{
		Number:      1,
		Title:       "Discovery",
		Description: "Understand the problem & users",
		Sections: []Section{
			{
				Title: "A. PRD Review",
				Tools: []Tool{
					{
						Name:        "CF1 PRD review Gemini Gem",
						Icon:        IconGemini,
						URL:         "https://gemini.google.com/gem/1B2-wr6pucPK0sxQLnrqpWJmMTmAOcBmC?usp=sharing",
						Description: "The Gemini Gem functions as a critical design analyst, converting the PRD into a structured, four-part critique (Frames) designed for immediate use in collaboration tools like Miro or FigJam.",
						CoreOutputFocus: []Frame{
							{
								Frame:           "Overview",
								KeyDeliverables: "A 2-3 sentence summary of the biggest misalignment between requirements and user needs.",
								Details: []FrameDetail{
									{Title: "Overview", Description: "High-level synthesis of the problem, persona, and conflict"},
								},
							},
							{
								Frame:           "Pain points & JTBDs",
								KeyDeliverables: "The synthesized Core Job-to-be-Done (JTBD) statement and 3 critical questions for the Product Manager.",
								Details: []FrameDetail{
									{Title: "Pain points & JTBDs", Description: "Alignment between the stated problem and the user's job-to-be-done."},
								},
							},
							{
								Frame:           "Business goals & metrics",
								KeyDeliverables: "Classification of the 2 main success metrics as either user-leading (user-centric) or lagging (business-centric) indicators.",
								Details: []FrameDetail{
									{Title: "Business goals & metrics", Description: "Evaluation of success metrics."},
								},
							},
							{
								Frame:           "Key design decisions",
								KeyDeliverables: "Validation of the 3 most complex features against user needs and an analysis of one major design trade-off",
								Details: []FrameDetail{
									{Title: "Key design decisions", Description: "Feature justification and implied trade-offs."},
								},
							},
						},
						Instructions: []string{
							"1. Input the PRD: Paste or Upload: Copy the full text of the PRD into the Gemini chat window, or use the file upload feature if the document is a text-based file (e.g., DOCX, TXT).",
							`2. Initiate Review: Send the content along with a clear prompt (e.g., "Review this PRD and provide a structured critique focusing on clarity, completeness, and alignment.").`,
							"3. Receive Output: The Gem will analyze the document and return a structured critique based on its training.",
							"4. Prepare for Collaboration: Copy the Output: Copy the text output of the Gem's critique.",
							"5. Integrate into Miro: Paste onto Board: Paste the critique onto your Discovery phase Miro board. Organize the points into sticky notes or a table for discussion.",
							"6. Discuss & Prioritize: Use the AI-generated findings as the agenda for your PRD review session. Tag and organize findings to align your team.",
						},
					},
					{
						Name:        "Miro discovery board template",
						Icon:        IconMiro,
						URL:         "https://miro.com/app/board/uXjVKbryC1g=/",
						Description: "A structured Miro template for discovery phase work.",
					},
				},
			},
			{
				Title: "B. Customer Discovery",
				Tools: []Tool{
					{
						Name:        "Meeting notes to test plan",
						Icon:        IconGemini,
						URL:         "https://gemini.google.com/gem/18V6380tgwmlUAvL5Np166S2nQnye9L0E?usp=sharing",
						Description: "Turning Gemini created or typed meeting notes and structures it into a test plan",
					},
				},
			},
		},
	},
	{
		Number:      2,
		Title:       "Define",
		Description: "Analyze findings & set strategy",
		Sections: []Section{
			{
				Title: "A. Strategy Framework",
				Tools: []Tool{
					{
						Name:        "User Journey Mapper",
						Icon:        IconMiro,
						URL:         "#",
						Description: "Map user journeys to identify key touchpoints and opportunities for improvement.",
					},
					{
						Name:        "Problem Statement Generator",
						Icon:        IconGemini,
						URL:         "#",
						Description: "Generate clear, actionable problem statements based on discovery findings.",
					},
				},
			},
			{
				Title: "B. Prioritization",
				Tools: []Tool{
					{
						Name:        "Impact/Effort Matrix",
						Icon:        IconMiro,
						URL:         "#",
						Description: "Prioritize features and initiatives based on impact and effort.",
					},
				},
			},
		},
	},
	{
		Number:      3,
		Title:       "Ideation",
		Description: "Generate solutions & concepts",
		Sections: []Section{
			{
				Title: "A. Concept Generation",
				Tools: []Tool{
					{
						Name:        "CF1 workflow validation",
						Icon:        IconGemini,
						URL:         "https://gemini.google.com/gem/1s-g0kNnGyyVVOXf0QvHHISPdccliNCrr?usp=sharing",
						Description: "The Gemini Gem functions as a Zero Trust workflow consultant, rigorously evaluating organizational processes against the Jobs-to-be-Done (JTBD) framework for key Cloudflare One user personas.",
						CoreOutputFocus: []Frame{
							{
								Frame:           "Core Output Focus",
								KeyDeliverables: "A structured, five-part validation report for each workflow submitted",
								Details: []FrameDetail{
									{Title: "Mapping", Description: "Which Cloudflare One products are utilized at each step."},
									{Title: "Persona", Description: "Which user roles interact with the workflow."},
									{Title: "Alignment Rating", Description: "A score (Strong, Moderate, Weak, Misaligned) indicating how well the workflow achieves the user's core Job-to-be-Done."},
									{Title: "Gaps & Issues", Description: "Identification of friction points, security risks, or missing steps."},
									{Title: "Recommendations", Description: "2-4 specific, actionable improvements using Cloudflare One features (Access policies, Gateway filtering, Tunnel configs)."},
								},
							},
						},
					},
					{
						Name:        "AI Design Assistant",
						Icon:        IconGemini,
						URL:         "#",
						Description: "Generate multiple design concepts based on your requirements and constraints.",
					},
					{
						Name:        "Brainstorming Template",
						Icon:        IconMiro,
						URL:         "#",
						Description: "Structured template for team brainstorming sessions.",
					},
				},
			},
			{
				Title: "B. Concept Refinement",
				Tools: []Tool{
					{
						Name:        "Design Critique Framework",
						Icon:        IconMiro,
						URL:         "#",
						Description: "Framework for structured design critiques and feedback.",
					},
				},
			},
			{
				Title: "C. Content Guide",
				Tools: []Tool{
					{
						Name:        "PCX CLUE index",
						Icon:        IconMiro,
						URL:         "https://clue.cloudflarecontent.com/",
						Description: "Write user-friendly UI, API, and email content. The CLUE Index evaluates content based on UX content best practices and Cloudflare's internal style guide.",
						CoreOutputFocus: []Frame{
							{
								Frame:           "Core Output Focus",
								KeyDeliverables: "Rate your content and give recommendations to match Cloudflare standards and guidelines.",
								Details:         []FrameDetail{},
							},
						},
					},
					{
						Name:        "Settings Label + Description Generator",
						Icon:        IconGemini,
						URL:         "https://gemini.google.com/gem/f724748d9d57?usp=sharing",
						Description: "Share details about new settings to generate outcome-oriented labels and descriptions",
					},
					{
						Name:        "Empty State Content",
						Icon:        IconGemini,
						URL:         "https://gemini.google.com/gem/1kD58Sb0fvthDiq8CHb0CdMcWhLvsTmHO?usp=sharing",
						Description: "Add your PRD or Product summary to create the content for an empty state",
					},
				},
			},
		},
	},
	{
		Number:      4,
		Title:       "Test",
		Description: "Validate solutions with users",
		Sections: []Section{
			{
				Title: "A. Test Planning",
				Tools: []Tool{
					{
						Name:        "Usability Test Plan Generator",
						Icon:        IconGemini,
						URL:         "#",
						Description: "Generate comprehensive usability test plans with scenarios and tasks.",
					},
					{
						Name:        "Test Session Template",
						Icon:        IconMiro,
						URL:         "#",
						Description: "Template for organizing and conducting user testing sessions.",
					},
				},
			},
			{
				Title: "B. Analysis",
				Tools: []Tool{
					{
						Name:        "Insights Synthesizer",
						Icon:        IconGemini,
						URL:         "#",
						Description: "Synthesize test findings into actionable insights and recommendations.",
					},
					{
						Name:        "Interim High-Level Research Observations",
						Icon:        IconGemini,
						URL:         "https://gemini.google.com/gem/086c392136b9?usp=sharing",
						Description: "Give interim findings of ongoing research to keep stakeholders in the loop on research initiatives. Please ensure all customer PII is cleaned from transcripts before submitting!",
					},
				},
			},
		},
	},
	{
		Number:      5,
		Title:       "Implement",
		Description: "Hand-off, launch, and refine",
		Sections: []Section{
			{
				Title: "A. Hand-off",
				Tools: []Tool{
					{
						Name:        "Design Spec Generator",
						Icon:        IconGemini,
						URL:         "#",
						Description: "Generate detailed design specifications for development teams.",
					},
					{
						Name:        "Component Library",
						Icon:        IconMiro,
						URL:         "#",
						Description: "Organized library of reusable design components.",
					},
				},
			},
			{
				Title: "B. Launch & Monitor",
				Tools: []Tool{
					{
						Name:        "Launch Checklist",
						Icon:        IconMiro,
						URL:         "#",
						Description: "Comprehensive checklist to ensure successful product launch.",
					},
					{
						Name:        "Metrics Dashboard",
						Icon:        IconMiro,
						URL:         "#",
						Description: "Track and monitor key performance metrics post-launch.",
					},
				},
			},
		},
	},
}
