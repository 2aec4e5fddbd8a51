// Package service implements the onboarding business logic.
//
// OnboardingService keeps one wizard.Engine per session, persisting every
// answer change through SessionRepository and submitting finished
// questionnaires through a ProfileSubmitter. ProfileService is the default
// submitter: it validates a flattened payload against the step catalog and
// stores it.
//
// # Configuration
//
// Services are built from config structs:
//
//	svc := service.NewOnboardingService(service.OnboardingServiceConfig{
//	    Sessions:   sessionRepo,
//	    Submitter:  profileService,
//	    SessionTTL: 72 * time.Hour,
//	})
//
// # Errors
//
// Service errors are declared in errors.go. Wizard errors such as
// wizard.ErrSelectionLimit and *wizard.MissingFieldsError are returned as-is.
package service
