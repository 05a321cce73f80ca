package wizard

import (
	"github.com/xkilldash9x/regwizard/api/schemas"
)

// Locators for the partner registration wizard. Where several are listed the
// first is the one the current build of the app matches; the rest cover
// markup variants seen across releases.
var (
	// Account setup (terms of service)
	SelTermsCheckbox  = schemas.ByID("remember")
	SelTermsContinue  = schemas.ByCSS(".primary-btn")
	SelPersonalMarker = schemas.ByCSS("form")

	// Personal details
	SelFirstName       = schemas.ByName("firstName")
	SelLastName        = schemas.ByName("lastName")
	SelEmail           = schemas.ByName("email")
	SelPhone           = schemas.ByName("phoneNumber")
	SelPassword        = schemas.ByName("password")
	SelConfirmPassword = schemas.ByName("confirmPassword")
	SelSubmit          = schemas.ByXPath("//button[@type='submit']")

	// Email verification
	SelOTPInput      = schemas.ByID("verificationCode")
	SelOTPInputAlt   = schemas.ByName("verificationCode")
	SelOTPOneTime    = schemas.ByCSS("input[autocomplete='one-time-code']")
	SelOTPDigits     = schemas.ByCSS("input[maxlength='1']")
	SelVerifyButton  = schemas.ByXPath("//button[contains(normalize-space(.),'Verify')]")
	SelAgencyHeading = schemas.ByXPath("//h2[contains(text(),'Agency Details')]")

	// Agency details
	SelAgencyName           = schemas.ByName("agency_name")
	SelAgencyRole           = schemas.ByName("role_in_agency")
	SelAgencyEmail          = schemas.ByName("agency_email")
	SelAgencyWebsite        = schemas.ByName("agency_website")
	SelAgencyAddress        = schemas.ByName("agency_address")
	SelRegionTrigger        = schemas.ByXPath("//label[contains(normalize-space(.),'Region')]/following::button[@role='combobox'][1]")
	SelDropdownOption       = schemas.ByCSS("[role='option']")
	SelExperienceHeading    = schemas.ByXPath("//h2[contains(text(),'Professional Experience')]")
	SelExperienceHeadingAlt = schemas.ByText("Professional Experience")

	// Professional experience
	SelYearsTrigger         = schemas.ByXPath("//label[contains(normalize-space(.),'Years of Experience')]/following::button[@role='combobox'][1]")
	SelStudentsRecruited    = schemas.ByName("number_of_students_recruited_annually")
	SelFocusArea            = schemas.ByName("focus_area")
	SelSuccessMetrics       = schemas.ByName("success_metrics")
	SelVerificationHeading  = schemas.ByXPath("//h2[contains(text(),'Verification and Preferences')]")
	SelVerificationHeadAlt  = schemas.ByText("Verification and Preferences")
	SelRegistrationNumber   = schemas.ByName("business_registration_number")
	SelCountriesTrigger     = schemas.ByXPath("//label[contains(normalize-space(.),'Preferred Countries')]/following::button[@role='combobox'][1]")
	SelCertificationDetails = schemas.ByName("certification_details")
	SelFileInputs           = schemas.ByCSS("input[type='file']")

	// Completion
	SelSuccessMessage = schemas.ByText("successfully")
	SelDashboard      = schemas.ByText("Dashboard")
	SelSuccessToast   = schemas.ByCSS("[data-sonner-toast][data-type='success']")
)

// byPlaceholder matches an input by a fragment of its placeholder.
func byPlaceholder(text string) schemas.Locator {
	return schemas.ByXPath("//input[contains(@placeholder, " + schemas.XPathLiteral(text) + ")] | //textarea[contains(@placeholder, " + schemas.XPathLiteral(text) + ")]")
}

// byLabel matches the first input or textarea after a label containing text.
func byLabel(text string) schemas.Locator {
	return schemas.ByXPath("//label[contains(normalize-space(.), " + schemas.XPathLiteral(text) + ")]/following::*[self::input or self::textarea][1]")
}

// fieldCandidates returns the name locator followed by label and placeholder
// fallbacks.
func fieldCandidates(primary schemas.Locator, label string) []schemas.Locator {
	return []schemas.Locator{primary, byLabel(label), byPlaceholder(label)}
}
