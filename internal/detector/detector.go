// Package detector is the cheap first pass of the escalation pipeline. It
// only decides whether the contextual verifier should run, so it prefers
// recall over precision.
package detector

import (
	"regexp"
	"strings"
)

// Signal is the heuristic output for one message.
type Signal struct {
	HasConcern  bool   `json:"has_concern" yaml:"has_concern"`
	ConcernType string `json:"concern_type,omitempty" yaml:"concern_type,omitempty"`
}

const (
	SelfHarmLanguage = "self_harm_language"
	SuicidalIdeation = "suicidal_ideation"
	AbuseDisclosure  = "abuse_disclosure"
	ViolenceThreat   = "violence_threat"
	Bullying         = "bullying"
	Distress         = "distress"
)

type trigger struct {
	concernType string
	phrases     []string
}

// Checked in order; the first group with a matching phrase wins.
var triggers = []trigger{
	{SuicidalIdeation, []string{
		"kill myself", "killing myself", "want to die", "wanna die", "end my life",
		"suicide", "suicidal", "better off dead", "better off without me",
		"don't want to live", "dont want to live", "don't want to be alive",
		"no reason to live", "not worth living",
	}},
	{SelfHarmLanguage, []string{
		"hurt myself", "hurting myself", "cut myself", "cutting myself",
		"harm myself", "self harm", "self-harm", "burn myself", "punish myself",
		"starve myself",
	}},
	{AbuseDisclosure, []string{
		"hits me", "hit me", "beats me", "touches me", "touched me",
		"hurts me at home", "scared to go home", "afraid to go home",
		"locked me in", "won't feed me", "wont feed me",
		"told me not to tell", "our secret",
	}},
	{ViolenceThreat, []string{
		"kill you", "kill him", "kill her", "kill them", "kill everyone",
		"shoot up", "bring a gun", "bring a knife", "stab you", "stab him", "stab her",
		"stab them", "bomb the school",
		"going to hurt", "gonna hurt",
	}},
	{Bullying, []string{
		"bully", "bullied", "bullying", "picking on me", "pick on me",
		"make fun of me", "makes fun of me", "laugh at me", "laughed at me",
		"call me names", "calls me names", "nobody likes me", "everyone hates me",
		"no friends", "left out",
	}},
	{Distress, []string{
		"hate myself", "i'm worthless", "im worthless", "i am worthless",
		"hopeless", "can't take it", "cant take it", "can't do this anymore",
		"cant do this anymore", "so alone", "nobody cares", "no one cares",
		"i give up", "so depressed", "really depressed", "panic attack",
		"crying every", "scared all the time",
	}},
}

var spaces = regexp.MustCompile(`\s+`)

var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "`", "'")

func normalize(message string) string {
	s := strings.ToLower(apostrophes.Replace(message))
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// Detect flags a message as possibly concerning and assigns a coarse type.
func Detect(message string) Signal {
	content := normalize(message)
	if content == "" {
		return Signal{}
	}

	for _, t := range triggers {
		for _, phrase := range t.phrases {
			if strings.Contains(content, phrase) {
				return Signal{HasConcern: true, ConcernType: t.concernType}
			}
		}
	}

	return Signal{}
}
