package journal

import (
	"regexp"
	"strings"

	"github.com/terra-femme/MedJournee/pkg/transcript"
)

// medicalTerms maps terms families encounter at visits to plain
// language. Adapted from the University of Michigan Plain Language
// Medical Dictionary and the CDC Plain Language Thesaurus (CC BY 4.0).
var medicalTerms = map[string]string{
	"hypertension":          "high blood pressure",
	"hypotension":           "low blood pressure",
	"diabetes":              "high blood sugar disease",
	"diabetes mellitus":     "sugar diabetes",
	"prediabetes":           "early warning of diabetes",
	"anemia":                "low red blood cells",
	"cholesterol":           "fat in your blood",
	"ldl":                   "bad cholesterol",
	"hdl":                   "good cholesterol",
	"ecg":                   "heart rhythm test",
	"ekg":                   "heart rhythm test",
	"echocardiogram":        "heart ultrasound",
	"mri":                   "detailed body scan",
	"ct scan":               "detailed X-ray",
	"cbc":                   "blood cell count test",
	"complete blood count":  "blood cell count test",
	"biopsy":                "tissue sample test",
	"benign":                "not cancer",
	"malignant":             "cancerous",
	"metastasis":            "cancer spread",
	"antibiotic":            "bacteria-killing medicine",
	"analgesic":             "pain reliever",
	"anti-inflammatory":     "swelling reducer",
	"prognosis":             "expected outcome",
	"diagnosis":             "identifying the problem",
	"acute":                 "sudden and short-term",
	"chronic":               "long-lasting",
	"symptoms":              "signs of illness",
	"vital signs":           "basic body measurements",
	"edema":                 "swelling",
	"inflammation":          "swelling and redness",
	"nausea":                "feeling sick to stomach",
	"fatigue":               "extreme tiredness",
	"vertigo":               "spinning dizziness",
	"arrhythmia":            "irregular heartbeat",
	"tachycardia":           "fast heartbeat",
	"bradycardia":           "slow heartbeat",
	"cardiologist":          "heart doctor",
	"oncologist":            "cancer doctor",
	"neurologist":           "brain and nerve doctor",
	"dermatologist":         "skin doctor",
	"endocrinologist":       "hormone doctor",
	"gastroenterologist":    "digestive system doctor",
	"pulmonologist":         "lung doctor",
	"orthopedist":           "bone and joint doctor",
	"nephrologist":          "kidney doctor",
	"urologist":             "urinary system doctor",
	"intravenous":           "through a vein",
	"iv":                    "medicine through a vein",
	"oral":                  "by mouth",
	"topical":               "on the skin",
	"injection":             "shot",
	"dosage":                "amount of medicine",
	"contraindication":      "reason not to use",
	"side effect":           "unwanted reaction",
	"allergic reaction":     "body overreaction",
	"anaphylaxis":           "severe allergic reaction",
	"stroke":                "brain attack",
	"heart attack":          "heart muscle damage",
	"myocardial infarction": "heart attack",
	"pneumonia":             "lung infection",
	"bronchitis":            "airway inflammation",
	"asthma":                "breathing condition",
	"copd":                  "chronic lung disease",
	"arthritis":             "joint inflammation",
	"osteoporosis":          "weak bones",
	"fracture":              "broken bone",
	"sprain":                "stretched ligament",
	"strain":                "pulled muscle",
	"thyroid":               "metabolism gland",
	"hypothyroidism":        "underactive thyroid",
	"hyperthyroidism":       "overactive thyroid",
	"insulin":               "blood sugar hormone",
	"glucose":               "blood sugar",
	"hemoglobin":            "oxygen carrier in blood",
	"a1c":                   "average blood sugar test",
	"hemoglobin a1c":        "3-month blood sugar average",
	"blood pressure":        "force of blood flow",
	"systolic":              "top blood pressure number",
	"diastolic":             "bottom blood pressure number",
	"pulse":                 "heartbeat rate",
	"temperature":           "body heat",
	"fever":                 "high body temperature",
	"outpatient":            "no overnight stay",
	"inpatient":             "hospital stay",
	"follow-up":             "return visit",
	"referral":              "doctor recommendation",
	"prescription":          "doctor's medicine order",
	"over-the-counter":      "no prescription needed",
	"generic":               "non-brand medicine",
	"electrolytes":          "body minerals",
	"dehydration":           "not enough fluids",
	"bmi":                   "weight-to-height ratio",
	"obesity":               "excess body weight",
	"remission":             "disease improvement",
	"relapse":               "disease return",
	"ultrasound":            "sound wave scan",
	"x-ray":                 "bone picture",
	"colonoscopy":           "colon exam",
	"endoscopy":             "internal camera exam",
	"anesthesia":            "numbing medicine",
	"sedation":              "relaxation medicine",
}

// medicalAbbreviations expand chart shorthand providers say out loud.
var medicalAbbreviations = map[string]string{
	"bp":     "blood pressure",
	"hr":     "heart rate",
	"rr":     "respiratory rate",
	"temp":   "temperature",
	"o2 sat": "oxygen saturation",
	"spo2":   "oxygen saturation",
	"rx":     "prescription",
	"dx":     "diagnosis",
	"hx":     "history",
	"tx":     "treatment",
	"fx":     "fracture",
	"sx":     "symptoms",
	"po":     "by mouth",
	"prn":    "as needed",
	"bid":    "twice a day",
	"tid":    "three times a day",
	"qid":    "four times a day",
	"qd":     "once a day",
	"hs":     "at bedtime",
	"ac":     "before meals",
	"pc":     "after meals",
	"stat":   "immediately",
	"npo":    "nothing by mouth",
	"sob":    "shortness of breath",
	"cp":     "chest pain",
	"ha":     "headache",
	"n/v":    "nausea and vomiting",
	"uri":    "upper respiratory infection",
	"uti":    "urinary tract infection",
	"mi":     "heart attack",
	"cva":    "stroke",
	"chf":    "heart failure",
	"cabg":   "heart bypass surgery",
	"cad":    "coronary artery disease",
	"afib":   "atrial fibrillation",
	"dvt":    "deep vein thrombosis",
	"pe":     "pulmonary embolism",
	"gi":     "gastrointestinal",
	"gerd":   "acid reflux disease",
	"ibs":    "irritable bowel syndrome",
	"ckd":    "chronic kidney disease",
	"esrd":   "end stage kidney disease",
	"ra":     "rheumatoid arthritis",
	"oa":     "osteoarthritis",
	"ms":     "multiple sclerosis",
	"tb":     "tuberculosis",
	"mrsa":   "antibiotic-resistant staph infection",
}

// wordPattern keeps hyphenated and slashed forms like x-ray and n/v as
// single tokens.
var wordPattern = regexp.MustCompile(`[\w/-]+`)

// explainTerms scans the conversation for known medical terms and
// returns plain-language explanations for the ones it finds. Two-word
// phrases win over their component words, and inflected forms like
// "hypertensive" fall back to the dictionary stem.
func explainTerms(segments []transcript.Segment) map[string]string {
	var all strings.Builder
	for _, seg := range segments {
		all.WriteString(strings.ToLower(seg.Text))
		all.WriteByte(' ')
	}
	words := wordPattern.FindAllString(all.String(), -1)

	var explained map[string]string
	add := func(term, plain string) {
		if explained == nil {
			explained = make(map[string]string)
		}
		explained[term] = plain
	}

	consumed := false
	for i, word := range words {
		if consumed {
			consumed = false
			continue
		}
		if i+1 < len(words) {
			phrase := word + " " + words[i+1]
			if plain, ok := medicalTerms[phrase]; ok {
				add(phrase, plain)
				consumed = true
				continue
			}
		}
		if plain, ok := medicalTerms[word]; ok {
			add(word, plain)
			continue
		}
		if expansion, ok := medicalAbbreviations[word]; ok {
			add(word, "medical abbreviation for "+expansion)
			continue
		}
		if term := stemMatch(word); term != "" {
			add(term, medicalTerms[term])
		}
	}
	return explained
}

// stemMatch finds the dictionary term a word is an inflection of, e.g.
// "hypertensive" for "hypertension". The shared prefix must cover all
// but the last two characters of the term.
func stemMatch(word string) string {
	if len(word) < 6 {
		return ""
	}
	best := ""
	for term := range medicalTerms {
		if len(term) < 7 || strings.ContainsAny(term, " -/") {
			continue
		}
		n := commonPrefixLen(word, term)
		if n < len(term)-2 {
			continue
		}
		if len(term) > len(best) || (len(term) == len(best) && term < best) {
			best = term
		}
	}
	return best
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
