package rag

// SeedDoc is a built-in guideline document indexed on every full rebuild,
// so retrieval works out of the box before any corpus directory exists.
type SeedDoc struct {
	Name      string
	Source    string
	Condition string
	Topic     string
	Content   string
}

// SeedGuidelines returns the embedded starter corpus: condensed guidance
// for the conditions and topics the coaching flows cover most.
func SeedGuidelines() []SeedDoc {
	return []SeedDoc{
		{
			Name:      "who_hypertension_diet",
			Source:    "who",
			Condition: "hypertension",
			Topic:     "diet",
			Content: `## Sodium reduction
Adults should reduce sodium intake to less than 2 grams per day, roughly one teaspoon of salt. Most dietary sodium comes from processed and packaged foods rather than salt added at the table, so favor fresh or minimally processed options. Reading labels and choosing low-sodium versions of staple foods is an effective first step.

## Potassium and overall pattern
Increase potassium intake from food sources such as beans, lentils, bananas, and leafy vegetables, which helps offset the blood pressure effects of sodium. An overall dietary pattern rich in vegetables, fruits, whole grains, and legumes, with limited free sugars and saturated fat, lowers blood pressure over time.`,
		},
		{
			Name:      "who_hypertension_activity",
			Source:    "who",
			Condition: "hypertension",
			Topic:     "activity",
			Content: `## Weekly activity target
Adults should do at least 150 to 300 minutes of moderate-intensity aerobic physical activity per week, or at least 75 to 150 minutes of vigorous activity, for meaningful blood pressure benefit. Activity can be accumulated in bouts of any length, so short walks count toward the total.

## Low-cost options
Brisk walking, stair climbing, bodyweight exercises at home, and household or yard work all qualify as moderate activity and require no equipment or gym membership. People who cannot exercise outdoors safely can substitute indoor routines such as marching in place, dancing, or following free guided sessions.`,
		},
		{
			Name:      "ada_diabetes_diet",
			Source:    "ada",
			Condition: "diabetes",
			Topic:     "diet",
			Content: `## Carbohydrate quality
Emphasize non-starchy vegetables, whole grains, legumes, and whole fruit over refined grains and added sugars. Sugar-sweetened beverages should be replaced with water wherever possible, as they drive rapid glucose spikes and add calories without satiety.

## Plate method
A simple starting framework is the plate method: fill half the plate with non-starchy vegetables, one quarter with lean protein, and one quarter with quality carbohydrate foods. This controls portions without weighing food and adapts to most cuisines and budgets.`,
		},
		{
			Name:      "ada_diabetes_activity",
			Source:    "ada",
			Condition: "diabetes",
			Topic:     "activity",
			Content: `## Aerobic and resistance work
Adults with or at risk of type 2 diabetes should aim for 150 minutes or more of moderate-to-vigorous aerobic activity per week, spread over at least 3 days, with no more than 2 consecutive days without activity. Adding 2 to 3 sessions of resistance exercise per week on nonconsecutive days improves glucose management further.

## Breaking up sitting
Prolonged sitting should be interrupted every 30 minutes with short bouts of light activity such as standing, walking, or simple leg exercises, which measurably improves glucose levels in people with type 2 diabetes.`,
		},
		{
			Name:      "who_general_ncd_red_flags",
			Source:    "who",
			Condition: "general_ncd",
			Topic:     "red_flags",
			Content: `## Seek urgent care
Chest pain or pressure, sudden weakness or numbness on one side of the body, difficulty speaking, sudden severe headache, or fainting are emergency warning signs that require immediate medical attention, not lifestyle advice. Severe shortness of breath at rest and blood pressure readings repeatedly above 180/120 also warrant urgent evaluation.

## Do not delay
Coaching guidance never replaces clinical care for warning symptoms. Anyone experiencing these signs should stop self-management steps and contact emergency services or present to the nearest facility without waiting to see whether symptoms pass.`,
		},
		{
			Name:      "cdc_general_ncd_sdoh",
			Source:    "cdc",
			Condition: "general_ncd",
			Topic:     "sdoh",
			Content: `## Working with constraints
Effective behavior change plans account for income, food access, work schedules, and neighborhood safety. Frozen and canned vegetables without added salt are nutritionally comparable to fresh produce and cost less; buying in bulk and choosing store brands stretches a limited food budget.

## Time and safety workarounds
Shift workers can anchor activity to existing routine points such as commuting, breaks, or household chores rather than fixed gym hours. When outdoor exercise is unsafe, indoor alternatives such as stair climbing, home circuits, and community center programs provide equivalent benefit.`,
		},
	}
}
