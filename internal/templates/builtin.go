package templates

import "sahaj/internal/models"

func builtinGuides() []Guide {
	return []Guide{
		{
			ID:          "pan-card-form",
			Title:       "PAN Card Application (Form 49A)",
			Description: "Apply for a Permanent Account Number for income tax.",
			Language:    models.English,
			Analysis: &models.AnalysisResult{
				FieldNames:             []string{"Full Name", "Father's Name", "Date of Birth", "Address", "Aadhaar Number"},
				OriginalTerms:          []string{"Assessing Officer", "Jurisdiction", "Indemnity"},
				SimplifiedExplanations: []string{"The tax officer who will handle your file.", "The geographical area your tax office covers.", "A promise to cover any losses."},
				RequiredActions:        []string{"Fill all mandatory fields", "Attach photograph", "Signature required", "Attach Proof of Identity", "Attach Proof of Address"},
				VerifiedResources:      []string{"https://www.incometaxindia.gov.in/pages/pan.aspx", "https://www.protean-tinpan.com/"},
			},
		},
		{
			ID:          "aadhaar-form",
			Title:       "Aadhaar Enrolment Form",
			Description: "Enrol for a new Aadhaar number or update your details.",
			Language:    models.English,
			Analysis: &models.AnalysisResult{
				FieldNames:             []string{"Full Name", "Gender", "Date of Birth", "Address", "Mobile Number", "Email ID", "Biometrics"},
				OriginalTerms:          []string{"Enrolment Agency", "Registrar", "Biometric Data"},
				SimplifiedExplanations: []string{"The company authorized to collect your data.", "The government body overseeing the enrolment agency.", "Your fingerprints and iris scans."},
				RequiredActions:        []string{"Fill personal details", "Provide mobile number for updates", "Visit enrolment center", "Provide fingerprints and iris scan"},
				VerifiedResources:      []string{"https://uidai.gov.in/", "https://myaadhaar.uidai.gov.in/"},
			},
		},
		{
			ID:          "passport-form",
			Title:       "Passport Application Form",
			Description: "Apply for a fresh passport or a re-issue.",
			Language:    models.English,
			Analysis: &models.AnalysisResult{
				FieldNames:             []string{"Applicant's Name", "Date of Birth", "Place of Birth", "Permanent Address", "Police Station", "Emergency Contact"},
				OriginalTerms:          []string{"Emoluments", "ECR / ECNR", "Issuing Authority"},
				SimplifiedExplanations: []string{"Your salary or income.", "'Emigration Check Required' status, for those who haven't passed 10th grade.", "The office that will issue your passport."},
				RequiredActions:        []string{"Fill all sections", "Attach birth certificate", "Attach proof of address", "Pay application fee", "Schedule appointment for police verification"},
				VerifiedResources:      []string{"https://www.passportindia.gov.in/"},
			},
		},
	}
}
