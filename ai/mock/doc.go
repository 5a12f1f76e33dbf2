// Package mock provides test doubles for the ai package.
//
// MockCompleter implements ai.Completer without any external service. It
// records every call, including the profile used, so tests can assert how
// many extraction and cleanup requests the pipeline made.
//
// # Usage in Tests
//
//	// Default behavior returns an all-"unknown" record
//	completer := mock.NewMockCompleter()
//
//	// Custom behavior injection
//	completer := mock.NewMockCompleter().
//	    WithCompleteFunc(func(ctx context.Context, p ai.Prompt, prof ai.Profile) (string, error) {
//	        if prof.Name == ai.ProfileCleanup {
//	            return "", ai.ErrInvalidRequest
//	        }
//	        return `{"author": "A"}`, nil
//	    })
//
//	// Check call counts
//	n := len(completer.CallsFor(ai.ProfileExtraction))
package mock
