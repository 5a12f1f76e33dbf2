package ingestion

// Prefixes placed before the user content of each request.
const (
	extractPrefix = "Extract the following information from the content: "
	cleanupPrefix = "Please clean up and uniqueify the following content: "
)

// DefaultExtractionInstruction is the system instruction for chunk extraction.
const DefaultExtractionInstruction = `You are an educational assistant that extracts structured study material from web content.
Read the content and reply with a single JSON object with exactly these keys:
- "author": the author or responsible organization, or "unknown"
- "site": the full publication or site name, or "unknown"
- "publish_date": the publication or last updated date, or "unknown"
- "main_topic": one sentence naming the primary subject, or "unknown"
- "parent_topic": the broader category of the main topic, or "unknown"
- "field": the academic or professional field, or "unknown"
- "keywords": an array of {"keyword", "definition", "relation_to_topic"} objects, one per distinct term or person
- "major_insights": an array of {"insight", "concept"} objects
- "supporting_details": an array of strings that add context to the insights
- "relevant_quotations": an array of short quotations taken from the content
- "external_links": an array of referenced URLs
Use an empty array when a list has no entries. Reply with JSON only.`

// DefaultCleanupInstruction is the system instruction for the cleanup pass.
const DefaultCleanupInstruction = `You are an editor of educational material. The content is a JSON object merged from several extractions of one document.
Merge keywords, insights and details that say the same thing, keep each keyword a single distinct term,
fill in metadata that one extraction found and another marked "unknown", and keep definitions clear and informative.
Reply with a single JSON object using the same keys as the input. Reply with JSON only.`
