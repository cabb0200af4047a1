package entity

// PAFormTemplate lists the fields extracted for a PA form.
type PAFormTemplate struct {
	Name         string
	Fields       []string
	Descriptions map[string]string
}

// StandardTemplate returns the standard PA field catalog. Each call returns a fresh copy.
func StandardTemplate() PAFormTemplate {
	return PAFormTemplate{
		Name: "Standard PA Form",
		Fields: []string{
			// patient
			"patient_name",
			"patient_dob",
			"patient_gender",
			"patient_address",
			"patient_phone",
			"patient_id",
			"member_id",
			"group_number",
			"insurance_id",

			// provider
			"provider_name",
			"provider_npi",
			"provider_phone",
			"provider_fax",
			"provider_address",
			"facility_name",
			"facility_npi",

			// clinical
			"diagnosis",
			"diagnosis_code",
			"icd_10_codes",
			"procedure_code",
			"cpt_codes",
			"procedure_description",
			"medical_necessity",
			"clinical_rationale",

			// medication
			"medication_name",
			"medication_dose",
			"medication_frequency",
			"medication_duration",
			"quantity_requested",

			// service
			"service_type",
			"service_date",
			"service_location",
			"units_requested",
			"length_of_stay",

			// additional
			"referring_provider",
			"ordering_provider",
			"admission_date",
			"discharge_date",
			"urgency_level",
			"previous_treatments",
		},
		Descriptions: map[string]string{
			"patient_name":      "Full name of the patient",
			"patient_dob":       "Patient's date of birth",
			"patient_gender":    "Patient's gender",
			"member_id":         "Insurance member ID number",
			"provider_npi":      "National Provider Identifier",
			"diagnosis":         "Primary diagnosis or condition",
			"diagnosis_code":    "ICD-10 diagnosis code",
			"procedure_code":    "CPT procedure code",
			"medical_necessity": "Explanation of why this treatment is medically necessary",
		},
	}
}
