package textgen

const expandIdeaPrompt = `You expand one-line story ideas into short film premises.
Respond with JSON only: {"synopsis": string, "genre": string, "tone": string}.
The synopsis is three to five sentences. Genre and tone are single lowercase words.`

const composeScriptPrompt = `You write scene-by-scene scripts for short narrated videos.
Respond with JSON only:
{"title": string, "scenes": [{"narration": string, "visual_prompt": string, "duration_seconds": number}]}.
Produce exactly the requested number of scenes. Narration is two to three
sentences per scene. The visual prompt describes one still image for the
scene. Scene durations are between 4 and 12 seconds.`

const analyzeCharactersPrompt = `You extract the recurring characters from a script.
Respond with JSON only:
{"characters": [{"name": string, "description": string, "role": string}]}.
The description covers physical appearance and clothing so an image model can
render the character consistently. Role is "protagonist", "antagonist", or
"supporting".`
