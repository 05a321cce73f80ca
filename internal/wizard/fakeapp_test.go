package wizard

import (
	"github.com/xkilldash9x/regwizard/api/schemas"
	"github.com/xkilldash9x/regwizard/internal/form"
	"github.com/xkilldash9x/regwizard/internal/mocks"
)

const (
	stageTerms = iota
	stagePersonal
	stageOTP
	stageAgency
	stageExperience
	stageBusiness
	stageDone
)

const fakeCode = "482913"

// fakeApp renders the registration wizard on a FakeDriver. Every element
// belongs to one stage and is visible only while that stage is current.
// Dropdown options are detached until their trigger is clicked.
type fakeApp struct {
	d      *mocks.FakeDriver
	stage  int
	staged map[*mocks.FakeElement]int
	popups map[*mocks.FakeElement][]*mocks.FakeElement

	// stuck stages ignore their submit click this many times.
	stuck map[int]int

	terms     *mocks.FakeElement
	fields    map[schemas.Locator]*mocks.FakeElement
	submits   map[int]*mocks.FakeElement
	otp       *mocks.FakeElement
	toggles   map[string]*mocks.FakeElement
	uploads   []*mocks.FakeElement
	triggers  map[string]*mocks.FakeElement
	navigated int
}

func newFakeApp() *fakeApp {
	a := &fakeApp{
		d:        mocks.NewFakeDriver(),
		staged:   map[*mocks.FakeElement]int{},
		popups:   map[*mocks.FakeElement][]*mocks.FakeElement{},
		stuck:    map[int]int{},
		fields:   map[schemas.Locator]*mocks.FakeElement{},
		submits:  map[int]*mocks.FakeElement{},
		toggles:  map[string]*mocks.FakeElement{},
		triggers: map[string]*mocks.FakeElement{},
	}
	a.build()
	a.d.OnNavigate = func(d *mocks.FakeDriver, _ string) error {
		a.navigated++
		a.show(stageTerms)
		return nil
	}
	a.show(-1)
	return a
}

func (a *fakeApp) add(stage int, el *mocks.FakeElement) *mocks.FakeElement {
	a.d.Add(el)
	a.staged[el] = stage
	return el
}

func (a *fakeApp) field(stage int, loc schemas.Locator) *mocks.FakeElement {
	el := a.add(stage, &mocks.FakeElement{Matches: []schemas.Locator{loc}})
	a.fields[loc] = el
	return el
}

func (a *fakeApp) heading(stage int, text string, locs ...schemas.Locator) {
	a.add(stage, &mocks.FakeElement{Matches: locs, Text: text})
}

func (a *fakeApp) submit(stage int, loc schemas.Locator, ready func() bool) {
	a.submits[stage] = a.add(stage, &mocks.FakeElement{
		Matches: []schemas.Locator{loc},
		OnClick: func(d *mocks.FakeDriver, _ *mocks.FakeElement) {
			if a.stuck[stage] > 0 {
				a.stuck[stage]--
				return
			}
			if ready == nil || ready() {
				a.show(stage + 1)
			}
		},
	})
}

func (a *fakeApp) dropdown(stage int, name string, trigger schemas.Locator, options ...string) {
	t := a.add(stage, &mocks.FakeElement{Matches: []schemas.Locator{trigger}})
	a.triggers[name] = t
	var opts []*mocks.FakeElement
	for _, o := range options {
		opt := &mocks.FakeElement{Matches: []schemas.Locator{SelDropdownOption}, Text: o, Detached: true}
		opt.OnClick = func(d *mocks.FakeDriver, e *mocks.FakeElement) {
			d.Mutate(func() {
				t.Attrs["data-value"] = e.Text
				for _, o := range opts {
					o.Detached = true
				}
			})
		}
		a.d.Add(opt)
		opts = append(opts, opt)
	}
	a.popups[t] = opts
	t.OnClick = func(d *mocks.FakeDriver, _ *mocks.FakeElement) {
		d.Mutate(func() {
			for _, o := range opts {
				o.Detached = false
			}
		})
	}
}

func (a *fakeApp) toggle(stage int, label string) {
	a.toggles[label] = a.add(stage, &mocks.FakeElement{
		Matches:       []schemas.Locator{form.ToggleCandidates(label)[0]},
		Attrs:         map[string]string{"aria-checked": "false"},
		ToggleOnClick: true,
		OnClick: func(d *mocks.FakeDriver, e *mocks.FakeElement) {
			d.Mutate(func() {
				if e.Selected {
					e.Attrs["aria-checked"] = "true"
				} else {
					e.Attrs["aria-checked"] = "false"
				}
			})
		},
	})
}

func (a *fakeApp) build() {
	a.terms = a.add(stageTerms, &mocks.FakeElement{Matches: []schemas.Locator{SelTermsCheckbox}, ToggleOnClick: true})
	a.submit(stageTerms, SelTermsContinue, func() bool { return a.terms.Selected })

	a.add(stagePersonal, &mocks.FakeElement{Matches: []schemas.Locator{SelPersonalMarker}})
	for _, loc := range []schemas.Locator{SelFirstName, SelLastName, SelEmail, SelPhone, SelPassword, SelConfirmPassword} {
		a.field(stagePersonal, loc)
	}
	a.submit(stagePersonal, SelSubmit, func() bool {
		return a.fields[SelPassword].Value != "" && a.fields[SelPassword].Value == a.fields[SelConfirmPassword].Value
	})

	a.otp = a.field(stageOTP, SelOTPInput)
	a.submit(stageOTP, SelVerifyButton, func() bool { return a.otp.Value == fakeCode })

	a.heading(stageAgency, "Agency Details", SelAgencyHeading)
	for _, loc := range []schemas.Locator{SelAgencyName, SelAgencyRole, SelAgencyEmail, SelAgencyWebsite, SelAgencyAddress} {
		a.field(stageAgency, loc)
	}
	a.dropdown(stageAgency, "region", SelRegionTrigger, "Nepal", "Australia", "Canada")
	a.submit(stageAgency, SelSubmit, nil)

	a.heading(stageExperience, "Professional Experience", SelExperienceHeading)
	a.dropdown(stageExperience, "years", SelYearsTrigger, "1 year", "3 years", "5 years", "10+ years")
	for _, loc := range []schemas.Locator{SelStudentsRecruited, SelFocusArea, SelSuccessMetrics} {
		a.field(stageExperience, loc)
	}
	a.toggle(stageExperience, "Career Counseling")
	a.toggle(stageExperience, "Admission Applications")
	a.submit(stageExperience, SelSubmit, nil)

	a.heading(stageBusiness, "Verification and Preferences", SelVerificationHeading)
	a.field(stageBusiness, SelRegistrationNumber)
	a.dropdown(stageBusiness, "countries", SelCountriesTrigger, "United Kingdom", "Australia")
	a.toggle(stageBusiness, "Universities")
	a.toggle(stageBusiness, "Colleges")
	a.field(stageBusiness, SelCertificationDetails)
	for i := 0; i < 2; i++ {
		a.uploads = append(a.uploads, a.add(stageBusiness, &mocks.FakeElement{Matches: []schemas.Locator{SelFileInputs}}))
	}
	a.submit(stageBusiness, SelSubmit, func() bool {
		for _, u := range a.uploads {
			if len(u.Files) == 0 {
				return false
			}
		}
		return true
	})

	a.heading(stageDone, "Application submitted successfully", SelSuccessMessage)
}

// show makes stage the current page. File inputs stay hidden, as they are in
// the real app.
func (a *fakeApp) show(stage int) {
	a.d.Mutate(func() {
		a.stage = stage
		for el, s := range a.staged {
			el.Hidden = s != stage
		}
		for _, u := range a.uploads {
			u.Hidden = true
		}
		for _, opts := range a.popups {
			for _, o := range opts {
				o.Detached = true
			}
		}
	})
}

func (a *fakeApp) currentStage() int {
	var s int
	a.d.Mutate(func() { s = a.stage })
	return s
}
