package filter

import "regexp"

// Scope decides when a rule is evaluated.
type Scope int

const (
	// ScopeAlways rules run for every message.
	ScopeAlways Scope = iota
	// ScopePersonalInfo rules run in strict mode or for under-13 rooms.
	ScopePersonalInfo
	// ScopeUnder13 rules run only for under-13 rooms.
	ScopeUnder13
)

func (s Scope) String() string {
	switch s {
	case ScopeAlways:
		return "always"
	case ScopePersonalInfo:
		return "personal_info"
	case ScopeUnder13:
		return "under13"
	}
	return "unknown"
}

func (s Scope) applies(isUnder13, strictMode bool) bool {
	switch s {
	case ScopeAlways:
		return true
	case ScopePersonalInfo:
		return strictMode || isUnder13
	case ScopeUnder13:
		return isUnder13
	}
	return false
}

// Rule is an immutable pattern descriptor tagged with its category.
type Rule struct {
	Category Category
	Scope    Scope
	Pattern  *regexp.Regexp
}

func rule(c Category, s Scope, expr string) Rule {
	return Rule{Category: c, Scope: s, Pattern: regexp.MustCompile(expr)}
}

// Evaluation order matters: images before links, addresses before
// locations, teacher names before full names.
var rules = []Rule{
	rule(CategoryPhone, ScopePersonalInfo,
		`(?:(?:\+|\b)1[-.\s]?(?:\(\d{3}\)\s?|\d{3}[-.\s]?)|\(\d{3}\)\s?|\b\d{3}[-.\s]?)\d{3}[-.\s]?\d{4}\b`),
	rule(CategoryEmail, ScopePersonalInfo,
		`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	rule(CategoryAddress, ScopePersonalInfo,
		`(?i)\b\d{1,5}\s+(?:[a-z0-9'.-]+\s+){1,4}(?:street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|terrace|circle|parkway)\b\.?`),
	rule(CategoryHomeAlone, ScopePersonalInfo,
		`(?i)\b(?:i\s*(?:am|['’]?m)\s+(?:all\s+)?(?:home\s+)?alone(?:\s+at\s+home)?|home\s+alone|(?:no\s*one|nobody)\s+(?:else\s+)?(?:is\s+)?(?:home|here\s+with\s+me))\b`),
	rule(CategoryGuardianAbsence, ScopePersonalInfo,
		`(?i)\b(?:my\s+)?(?:parents?|mom|mum|dad|mother|father|guardians?|grandma|grandpa)(?:\s+(?:is|are)|['’](?:s|re))\s+(?:not\s+(?:home|here|around)|away|gone|out|at\s+work|on\s+(?:a\s+)?(?:trip|vacation|holiday))\b`),
	rule(CategorySchoolName, ScopePersonalInfo,
		`(?i:\b(?:i\s+go\s+to|i\s+attend|my\s+school\s+is))\s+(?:[A-Z][\w'.-]*\s+){1,4}(?i:(?:elementary\s+|middle\s+|high\s+|primary\s+)?(?:school|academy))\b`),
	rule(CategoryTeacherName, ScopePersonalInfo,
		`(?i:\bmy\s+teacher(?:['’]s\s+name)?\s+is)\s+(?:(?i:mr|mrs|ms|miss|dr)\.?\s+)?[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?\b`),
	rule(CategoryTeacherName, ScopePersonalInfo,
		`\b(?:Mr|Mrs|Ms|Miss|Dr)\.?\s+[A-Z][a-z]+\b`),
	rule(CategoryFullName, ScopePersonalInfo,
		`(?i:\b(?:my\s+(?:full\s+|real\s+)?name\s+is|i\s+am\s+called|call\s+me))\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+\b`),
	rule(CategoryMedicalInfo, ScopePersonalInfo,
		`(?i)\b(?:i\s+have|i\s+take|i(?:['’]m|\s+am)\s+on|(?:i\s+was\s+|i(?:['’]m|\s+am)\s+)?diagnosed\s+with)\s+(?:(?:a|an|my|some)\s+)?(?:adhd|autism|asthma|diabetes|epilepsy|depression|anxiety|allergies|allergy|cancer|seizures|medication|medicine|meds|insulin|inhaler|epipen)\b`),
	rule(CategoryLocation, ScopePersonalInfo,
		`(?i:\b(?:i\s+live\s+(?:in|on|at|near|by)|my\s+(?:house|home)\s+is\s+(?:in|on|at|near|by)))\s+(?:the\s+)?[A-Z][\w'.-]*(?:\s+[A-Z][\w'.-]*){0,3}`),
	rule(CategoryBirthdate, ScopePersonalInfo,
		`\b\d{1,2}[/.-]\d{1,2}[/.-](?:\d{4}|\d{2})\b`),
	rule(CategoryBirthdate, ScopePersonalInfo,
		`(?i)\b(?:my\s+birthday\s+is|(?:i\s+was\s+)?born\s+on)\s+(?:(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?|\d{1,2}(?:st|nd|rd|th)?\s+(?:of\s+)?(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*)(?:,?\s+\d{4})?\b`),
	rule(CategoryAge, ScopePersonalInfo,
		`(?i)\b\d{1,2}\s*-?\s*(?:years?|yrs?)\s*-?\s*old\b`),
	rule(CategoryAge, ScopePersonalInfo,
		`(?i)\b(?:my\s+age\s+is|i\s+(?:just\s+)?turned)\s+\d{1,2}\b`),
	rule(CategoryAge, ScopePersonalInfo,
		`(?im)\bi(?:['’]m|\s+am)\s+\d{1,2}\b\s*$`),
	rule(CategoryPassword, ScopePersonalInfo,
		`(?i)\b(?:my\s+)?(?:password|passcode|pin\s+code|pin)\b\s*(?:is|:|=)\s*\S+`),

	rule(CategoryExternalPlatform, ScopeUnder13,
		`(?i)\b(?:discord|snap\s*chat|insta(?:gram)?|tik\s*tok|whats\s*app|telegram|kik|facebook|messenger|wechat|omegle)\b`),

	rule(CategoryViolenceSelfHarm, ScopeAlways,
		`(?i)\b(?:kill(?:ing)?\s+(?:my\s*self|your\s*self|him|her|them|you|everyone)|hurt(?:ing)?\s+(?:my\s*self|your\s*self)|suicid(?:e|al)|self[-\s]?harm(?:ing)?|cut(?:ting)?\s+my\s*self|end\s+my\s+life|shoot(?:ing)?\s+(?:up|you|him|her|them|everyone)|stab(?:bing)?\s+(?:you|him|her|them|someone)|bring\s+a\s+(?:gun|knife)|bomb\s+(?:the|my)\s+school)\b`),
	rule(CategoryNegativeSelfTalk, ScopeAlways,
		`(?i)\b(?:i(?:['’]m|\s+am)\s+(?:so\s+|really\s+|just\s+|such\s+)?(?:an?\s+)?(?:stupid|dumb|worthless|useless|ugly|failure|idiot|loser|hopeless|pathetic|burden)|i\s+hate\s+my\s*self|nobody\s+(?:likes|loves|cares\s+about)\s+me|i\s+(?:can['’]?t|cannot)\s+do\s+anything\s+right)\b`),
	rule(CategorySexualContent, ScopeAlways,
		`(?i)\b(?:sex|sexy|sexual(?:ly)?|porn\w*|nudes?|naked|boobs?|penis|vagina|dick|pussy|horny|xxx|onlyfans|send\s+(?:me\s+)?(?:pics|nudes))\b`),

	rule(CategoryEmbeddedImage, ScopeAlways, `!\[[^\]]*\]\([^)\s]*\)`),
	rule(CategoryEmbeddedImage, ScopeAlways, `(?i)<img\b[^>]*>`),
	rule(CategoryEmbeddedImage, ScopeAlways, `(?i)\bdata:image/[a-z0-9.+-]+;base64,[a-z0-9+/=]+`),

	rule(CategoryExternalLink, ScopeUnder13, `(?i)\b(?:https?://|www\.)[^\s<>()\[\]]+`),
	rule(CategoryExternalLink, ScopeUnder13,
		`(?i)\b[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)*\.(?:com|net|org|io|gg|ly|co|me|tv|xyz|app|link|site)\b(?:/[^\s<>()\[\]]*)?`),
}

// Rules returns a copy of the ordered rule table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}
