package scripted

import (
	"regexp"
	"strconv"
	"strings"
)

// Step is one planned tool invocation, expressed against the action it needs.
type Step struct {
	Action string
	Args   map[string]any
}

const (
	actionMove   = "move"
	actionPickup = "pickup"
	actionWait   = "wait"
)

var (
	clauseSep = regexp.MustCompile(`\s*(?:,|;|\.|\bthen\b|\band\b)\s*`)
	wordRe    = regexp.MustCompile(`[a-z0-9]+`)
)

var directionWords = map[string]string{
	"north": "north", "up": "north",
	"south": "south", "down": "south",
	"east": "east", "right": "east",
	"west": "west", "left": "west",
}

var numberWords = map[string]int{
	"one": 1, "once": 1, "a": 1, "an": 1,
	"two": 2, "twice": 2,
	"three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var pickupVerbs = map[string]bool{"pick": true, "pickup": true, "grab": true, "collect": true, "take": true, "get": true}

var fillerWords = map[string]bool{
	"pick": true, "pickup": true, "grab": true, "collect": true, "take": true, "get": true,
	"up": true, "the": true, "a": true, "an": true, "any": true, "item": true, "it": true,
	"anything": true, "something": true, "everything": true,
}

// Plan turns a goal such as "move east two steps then pick up the key" into
// steps. Clauses it does not understand are skipped.
func Plan(goal string) []Step {
	var steps []Step
	for _, clause := range clauseSep.Split(strings.ToLower(goal), -1) {
		words := wordRe.FindAllString(clause, -1)
		if len(words) == 0 {
			continue
		}
		if step, ok := planClause(words); ok {
			steps = append(steps, step)
		}
	}
	return steps
}

func planClause(words []string) (Step, bool) {
	has := func(set map[string]bool) bool {
		for _, w := range words {
			if set[w] {
				return true
			}
		}
		return false
	}
	switch {
	case has(pickupVerbs):
		args := map[string]any{}
		for i := len(words) - 1; i >= 0; i-- {
			if !fillerWords[words[i]] {
				if _, isNum := count(words[i]); !isNum {
					args["item_type"] = words[i]
				}
				break
			}
		}
		return Step{Action: actionPickup, Args: args}, true
	case has(map[string]bool{"wait": true, "rest": true, "pause": true}):
		return Step{Action: actionWait, Args: map[string]any{"turns": firstCount(words)}}, true
	}
	for _, w := range words {
		if dir, ok := directionWords[w]; ok {
			return Step{Action: actionMove, Args: map[string]any{"direction": dir, "steps": firstCount(words)}}, true
		}
	}
	return Step{}, false
}

func firstCount(words []string) int {
	for _, w := range words {
		if n, ok := count(w); ok && n > 0 {
			return n
		}
	}
	return 1
}

func count(w string) (int, bool) {
	if n, err := strconv.Atoi(w); err == nil {
		return n, true
	}
	n, ok := numberWords[w]
	return n, ok
}
