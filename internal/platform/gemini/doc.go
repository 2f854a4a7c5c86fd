// Package gemini implements the generation.Provider interface against
// Google's Gemini API via the google.golang.org/genai SDK. API-level
// failures are mapped onto the generation package's error taxonomy so the
// client treats both providers identically.
package gemini
