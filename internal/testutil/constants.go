// Package testutil provides shared constants and fake servers for tests across the module.
// The fakes are echo applications served by net/http/httptest.
package testutil

// Test Credentials
//
// These constants define the account used against the fake auth server.

const (
	// TestEmail is the default account for sign-in tests.
	TestEmail = "ana@example.com"

	// TestPassword is the password registered for TestEmail.
	TestPassword = "correct-horse"

	// TestAnonKey is the Supabase anon key the fake auth server expects in the apikey header.
	TestAnonKey = "anon-test-key"
)

// Test Error Messages

const (
	// TestError is a generic error message for test error scenarios.
	TestError = "test error"

	// TestConnectionRefused is the common network error message for connection failures.
	TestConnectionRefused = "connection refused"
)

// Test API Paths

const (
	// TestQuestionID is a question identifier used by service and command tests.
	TestQuestionID = "5f0d7a3e-2d1b-4c7a-9a53-1f2e3d4c5b6a"

	// TestSimulationID is a simulation identifier used by service and command tests.
	TestSimulationID = "9b8c7d6e-5f4a-4b3c-8d2e-1a0b9c8d7e6f"
)
