package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/regwizard/api/schemas"
	"github.com/xkilldash9x/regwizard/internal/form"
	"github.com/xkilldash9x/regwizard/internal/mailbox"
)

const (
	StepAccountSetup         = "Account Setup"
	StepPersonalDetails      = "Personal Details"
	StepOTPVerification      = "OTP Verification"
	StepAgencyDetails        = "Agency Details"
	StepExperienceDetails    = "Experience Details"
	StepBusinessRegistration = "Business Registration"
)

// Profile is the business data entered after the personal details. It is
// derived from the identity so that every run submits distinct values.
type Profile struct {
	AgencyName       string
	Role             string
	AgencyEmail      string
	Website          string
	Address          string
	Region           string
	YearsExperience  string
	Students         string
	FocusArea        string
	SuccessMetrics   string
	Services         []string
	RegistrationNo   string
	Countries        string
	InstitutionTypes []string
	Certification    string
}

func ProfileFor(id schemas.Identity) Profile {
	slug := strings.ToLower(id.LastName)
	return Profile{
		AgencyName:       id.LastName + " Global Education",
		Role:             "Director",
		AgencyEmail:      id.Email(),
		Website:          "https://www." + slug + "education.com",
		Address:          "Putalisadak, Kathmandu, Nepal",
		Region:           "Australia",
		YearsExperience:  "5",
		Students:         "120",
		FocusArea:        "Undergraduate admissions to Australia and Canada",
		SuccessMetrics:   "90",
		Services:         []string{"Career Counseling", "Admission Applications"},
		RegistrationNo:   "BRN-" + strings.ToUpper(id.Mailbox.Token),
		Countries:        "Australia",
		InstitutionTypes: []string{"Universities", "Colleges"},
		Certification:    "ICEF Certified Education Agent",
	}
}

// AccountSetup accepts the terms of service and continues to the form.
func AccountSetup(r *Runner) Step {
	return &plannedStep{runner: r, name: StepAccountSetup, plan: func() stepPlan {
		return stepPlan{
			name:  StepAccountSetup,
			entry: []schemas.Locator{SelTermsCheckbox},
			fill: func(ctx context.Context, d schemas.Driver, _ schemas.Identity) error {
				box, err := r.form.Resolve(ctx, d, "terms checkbox", SelTermsCheckbox)
				if err != nil {
					return err
				}
				checked, err := d.IsSelected(ctx, box)
				if err != nil {
					return schemas.NewError(schemas.ErrCodeFieldFillFailed, "terms checkbox", err)
				}
				if checked {
					return nil
				}
				if err := d.Click(ctx, box); err != nil {
					return schemas.NewError(schemas.ErrCodeFieldFillFailed, "terms checkbox", err)
				}
				return nil
			},
			submit: []schemas.Locator{SelTermsContinue},
			next:   []schemas.Locator{SelFirstName, SelPersonalMarker},
		}
	}}
}

// PersonalDetails fills the registrant's name, contact and password.
func PersonalDetails(r *Runner) Step {
	return &plannedStep{runner: r, name: StepPersonalDetails, plan: func() stepPlan {
		return stepPlan{
			name:  StepPersonalDetails,
			entry: []schemas.Locator{SelFirstName},
			fill: func(ctx context.Context, d schemas.Driver, id schemas.Identity) error {
				fields := []form.Field{
					{Name: "first name", Candidates: fieldCandidates(SelFirstName, "First Name"), Value: id.FirstName},
					{Name: "last name", Candidates: fieldCandidates(SelLastName, "Last Name"), Value: id.LastName},
					{Name: "email", Candidates: fieldCandidates(SelEmail, "Email"), Value: id.Email()},
				}
				if err := fillAll(ctx, r.form, d, fields); err != nil {
					return err
				}

				phone := form.Field{Name: "phone", Candidates: fieldCandidates(SelPhone, "Phone"), Value: id.Phone}
				if err := r.form.Fill(ctx, d, phone); err != nil {
					if errors.Is(err, schemas.ErrElementNotFound) {
						return err
					}
					r.logger.Warn("Phone rejected; trying alternative format.", zap.Error(err))
					phone.Value = id.AltPhone
					if err := r.form.Fill(ctx, d, phone); err != nil {
						return err
					}
				}

				return fillAll(ctx, r.form, d, []form.Field{
					{Name: "password", Candidates: fieldCandidates(SelPassword, "Password"), Value: id.Password, Secret: true},
					{Name: "confirm password", Candidates: fieldCandidates(SelConfirmPassword, "Confirm Password"), Value: id.Password, Secret: true},
				})
			},
			submit:       []schemas.Locator{SelSubmit},
			beforeSubmit: r.requireEnabled,
			next:         []schemas.Locator{SelOTPInput, SelOTPInputAlt, SelOTPOneTime, SelOTPDigits},
		}
	}}
}

// OTPVerification waits for the emailed code and enters it. The code is
// fetched once per run and reused if the step is retried.
func OTPVerification(r *Runner, codes mailbox.CodeRetriever) Step {
	return &plannedStep{runner: r, name: StepOTPVerification, plan: func() stepPlan {
		var code schemas.VerificationCode
		return stepPlan{
			name:  StepOTPVerification,
			entry: []schemas.Locator{SelOTPInput, SelOTPInputAlt, SelOTPOneTime, SelOTPDigits},
			fill: func(ctx context.Context, d schemas.Driver, id schemas.Identity) error {
				if code == "" {
					c, err := codes.RetrieveCode(ctx, id.Mailbox)
					if err != nil {
						return err
					}
					code = c
					r.logger.Info("Verification code obtained.", zap.String("mailbox", id.Email()))
				}
				return enterCode(ctx, r, d, code)
			},
			submit: []schemas.Locator{SelVerifyButton, SelSubmit},
			next:   []schemas.Locator{SelAgencyHeading, schemas.ByText("Agency Details")},
		}
	}}
}

// enterCode fills a single code input, or one digit per box when the page
// renders the code as separate inputs.
func enterCode(ctx context.Context, r *Runner, d schemas.Driver, code schemas.VerificationCode) error {
	boxes, err := d.FindAll(ctx, SelOTPDigits)
	if err != nil || len(boxes) < len(code) {
		return r.form.Fill(ctx, d, form.Field{
			Name:       "verification code",
			Candidates: []schemas.Locator{SelOTPInput, SelOTPInputAlt, SelOTPOneTime},
			Value:      code.String(),
		})
	}
	for i, digit := range code.String() {
		f := form.Field{Name: fmt.Sprintf("verification digit %d", i+1), Value: string(digit)}
		if err := r.form.FillElement(ctx, d, boxes[i], f); err != nil {
			return err
		}
	}
	return nil
}

// AgencyDetails enters the agency's identity and region of operation.
func AgencyDetails(r *Runner) Step {
	return &plannedStep{runner: r, name: StepAgencyDetails, plan: func() stepPlan {
		return stepPlan{
			name:  StepAgencyDetails,
			entry: []schemas.Locator{SelAgencyHeading, schemas.ByText("Agency Details")},
			fill: func(ctx context.Context, d schemas.Driver, id schemas.Identity) error {
				p := ProfileFor(id)
				if err := fillAll(ctx, r.form, d, []form.Field{
					{Name: "agency name", Candidates: fieldCandidates(SelAgencyName, "Agency Name"), Value: p.AgencyName},
					{Name: "role in agency", Candidates: fieldCandidates(SelAgencyRole, "Role"), Value: p.Role},
					{Name: "agency email", Candidates: fieldCandidates(SelAgencyEmail, "Email Address"), Value: p.AgencyEmail},
					{Name: "agency website", Candidates: fieldCandidates(SelAgencyWebsite, "Website"), Value: p.Website},
					{Name: "agency address", Candidates: fieldCandidates(SelAgencyAddress, "Address"), Value: p.Address},
				}); err != nil {
					return err
				}
				_, err := r.form.Select(ctx, d, form.Dropdown{
					Name:    "region of operation",
					Trigger: []schemas.Locator{SelRegionTrigger, schemas.ByXPath("(//button[@role='combobox'])[1]")},
					Options: SelDropdownOption,
					Want:    p.Region,
				})
				return err
			},
			submit: []schemas.Locator{SelSubmit},
			next:   []schemas.Locator{SelExperienceHeading, SelExperienceHeadingAlt},
		}
	}}
}

// ExperienceDetails records recruitment history and services offered.
func ExperienceDetails(r *Runner) Step {
	return &plannedStep{runner: r, name: StepExperienceDetails, plan: func() stepPlan {
		return stepPlan{
			name:  StepExperienceDetails,
			entry: []schemas.Locator{SelExperienceHeading, SelExperienceHeadingAlt},
			fill: func(ctx context.Context, d schemas.Driver, id schemas.Identity) error {
				p := ProfileFor(id)
				if _, err := r.form.Select(ctx, d, form.Dropdown{
					Name:    "years of experience",
					Trigger: []schemas.Locator{SelYearsTrigger, schemas.ByXPath("(//button[@role='combobox'])[1]")},
					Options: SelDropdownOption,
					Want:    p.YearsExperience,
				}); err != nil {
					return err
				}
				if err := fillAll(ctx, r.form, d, []form.Field{
					{Name: "students recruited", Candidates: fieldCandidates(SelStudentsRecruited, "Students Recruited"), Value: p.Students},
					{Name: "focus area", Candidates: fieldCandidates(SelFocusArea, "Focus Area"), Value: p.FocusArea},
					{Name: "success metrics", Candidates: fieldCandidates(SelSuccessMetrics, "Success Metrics"), Value: p.SuccessMetrics},
				}); err != nil {
					return err
				}
				return r.form.ActivateAll(ctx, d, p.Services...)
			},
			submit: []schemas.Locator{SelSubmit},
			next:   []schemas.Locator{SelVerificationHeading, SelVerificationHeadAlt},
		}
	}}
}

// BusinessRegistration enters registration data, attaches the documents and
// submits the application.
func BusinessRegistration(r *Runner, documents []string) Step {
	return &plannedStep{runner: r, name: StepBusinessRegistration, plan: func() stepPlan {
		return stepPlan{
			name:  StepBusinessRegistration,
			entry: []schemas.Locator{SelVerificationHeading, SelVerificationHeadAlt},
			fill: func(ctx context.Context, d schemas.Driver, id schemas.Identity) error {
				p := ProfileFor(id)
				if err := r.form.Fill(ctx, d, form.Field{
					Name:       "business registration number",
					Candidates: fieldCandidates(SelRegistrationNumber, "Registration Number"),
					Value:      p.RegistrationNo,
				}); err != nil {
					return err
				}
				if _, err := r.form.Select(ctx, d, form.Dropdown{
					Name:    "preferred countries",
					Trigger: []schemas.Locator{SelCountriesTrigger, schemas.ByXPath("(//button[@role='combobox'])[1]")},
					Options: SelDropdownOption,
					Want:    p.Countries,
				}); err != nil {
					return err
				}
				if err := r.form.ActivateAll(ctx, d, p.InstitutionTypes...); err != nil {
					return err
				}
				if err := r.form.Fill(ctx, d, form.Field{
					Name:       "certification details",
					Candidates: fieldCandidates(SelCertificationDetails, "Certification Details"),
					Value:      p.Certification,
				}); err != nil {
					return err
				}
				if len(documents) == 0 {
					r.logger.Warn("No documents configured; skipping uploads.")
					return nil
				}
				return r.form.Upload(ctx, d, SelFileInputs, documents)
			},
			submit: []schemas.Locator{SelSubmit},
			next:   []schemas.Locator{SelSuccessMessage, SelDashboard, SelSuccessToast},
		}
	}}
}

func fillAll(ctx context.Context, fc *form.Controller, d schemas.Driver, fields []form.Field) error {
	for _, f := range fields {
		if err := fc.Fill(ctx, d, f); err != nil {
			return err
		}
	}
	return nil
}
