package content

import (
	"encoding/json"
	"fmt"

	"github.com/futstats/dailypost/internal/aggregate"
)

const systemPrompt = `You are a technical writer. ALWAYS respond with pure valid JSON (no markdown and no extra text).`

// buildPrompt embeds the payload as structured data and constrains the model
// to it: no invented numbers, fixed output schema, fixed body formatting.
func buildPrompt(payload *aggregate.Payload, postID string) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize payload: %w", err)
	}

	return fmt.Sprintf(`You write for FutStats. Create ONE daily post.
CRITICAL rule: use ONLY the numbers provided in the JSON below. Do not invent odds, probabilities, kickoff times or leagues.
If a value is missing, write "not available".

IMPORTANT RULES (to avoid mistakes):
- Do NOT write "win probability", do NOT use the 1X2 market, do NOT talk about the home or away side winning.
- Use ONLY the data/markets that exist in the JSON: Over 2.5 (over_25), BTTS (btts_yes) and the Value Bets (odd + calculated_probability).

Return ONLY valid JSON (no markdown), in this format:
{
  "id": "%s",
  "title": "...",
  "excerpt": "...",
  "content": "...",
  "date": "%s",
  "category": "Daily"
}

Content rules:
- at most ~900 words
- include a short risk disclaimer (betting involves risk)
- avoid language of certainty (no "guaranteed", "sure thing", "100%%"); if a number looks very high, treat it as an estimate and cap the wording at "~95%%"
- mandatory text formatting:
  - separate paragraphs with "\n\n"
  - lists use ONE line per item, starting with "- "
  - no markdown emphasis (no "**" and no "*"). You MAY use plain headings starting with "# " (that only).
- tone of voice:
  - open with a short friendly greeting (e.g. "Good morning!")
  - close with a short friendly sign-off (e.g. "Good luck, see you tomorrow!")
- samples:
  - when a match's sample.quality is low or unavailable, or sample.min_sample_size is below sample.sample_limit, make clear the sample is small and confidence is lower.
- do NOT include CTAs or links in the post body. The site renders those separately.

Today's data (JSON):
%s`, postID, payload.Date, string(data)), nil
}
