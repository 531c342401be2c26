package recurrence

// Optional carries a rule that may be absent. The zero value is absent.
type Optional struct {
	rule    Rule
	present bool
}

func Some(rule Rule) Optional {
	return Optional{rule: rule, present: true}
}

func None() Optional {
	return Optional{}
}

func (o Optional) Get() (Rule, bool) {
	return o.rule, o.present
}

func (o Optional) IsPresent() bool {
	return o.present
}
