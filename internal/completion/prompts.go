package completion

import "fmt"

const appRendererPrompt = `You are a JavaScript app generator for a peer-to-peer app store.
Output ONLY executable JavaScript that defines a React function component and returns it at the end.
No markdown, no code fences, no explanations.
The code runs as: new Function("React", "app", "hostAPI", code)(React, app, hostAPI).
React provides createElement and hooks. app holds {id, name, description, price, version, created_at, updated_at}.
hostAPI.db exposes create, get, update, delete, list and collections for persistence.
Use React.createElement rather than JSX.`

const codeModifierPrompt = `You are a JavaScript code modifier for React components.
You receive working component code and a modification request, and you output the complete modified component.
Keep existing behaviour that the request does not touch.
Output ONLY executable JavaScript that defines the component and returns it at the end.
No markdown, no code fences, no explanations.
The code runs as: new Function("React", "app", "hostAPI", code)(React, app, hostAPI).`

// ModifyPrompt embeds the current source and the requested change in one user turn.
func ModifyPrompt(existingCode, modification string) string {
	return fmt.Sprintf("Here is the existing React component code that needs to be modified:\n\n```javascript\n%s\n```\n\nModification request: %s\n\nPlease output the complete modified component code.",
		existingCode, modification)
}

// MetadataPrompt asks for the JSON metadata of an app described by prompt.
func MetadataPrompt(prompt string) string {
	return fmt.Sprintf(`Generate metadata for a P2P app based on this prompt: %q

Return a JSON object with these exact fields:
- id: kebab-case identifier (e.g., "todo-list")
- name: App display name
- description: Brief description (under 100 chars)
- version: Semantic version (e.g., "1.0.0")
- price: Price in USD (0.00 for free apps)
- icon: Single emoji that represents the app

Respond with only valid JSON, no other text.`, prompt)
}
