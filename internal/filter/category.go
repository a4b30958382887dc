package filter

// Category is a closed set of content classes the filter can redact.
type Category string

const (
	CategoryPhone            Category = "phone"
	CategoryEmail            Category = "email"
	CategoryAddress          Category = "address"
	CategoryHomeAlone        Category = "home_alone"
	CategoryGuardianAbsence  Category = "guardian_absence"
	CategorySchoolName       Category = "school_name"
	CategoryTeacherName      Category = "teacher_name"
	CategoryFullName         Category = "full_name"
	CategoryMedicalInfo      Category = "medical_info"
	CategoryLocation         Category = "location"
	CategoryBirthdate        Category = "birthdate"
	CategoryAge              Category = "age"
	CategoryPassword         Category = "password"
	CategoryExternalPlatform Category = "external_platform"
	CategoryViolenceSelfHarm Category = "violence_self_harm"
	CategoryNegativeSelfTalk Category = "negative_self_talk"
	CategorySexualContent    Category = "sexual_content"
	CategoryExternalLink     Category = "external_link"
	CategoryEmbeddedImage    Category = "embedded_image"
)

type categoryInfo struct {
	label string
	token string
}

// Tokens must not be matchable by any rule, otherwise filtering is not idempotent.
var categories = map[Category]categoryInfo{
	CategoryPhone:            {"phone number", "[PHONE REMOVED]"},
	CategoryEmail:            {"email address", "[EMAIL REMOVED]"},
	CategoryAddress:          {"physical address", "[ADDRESS REMOVED]"},
	CategoryHomeAlone:        {"home alone status", "[SAFETY INFO REMOVED]"},
	CategoryGuardianAbsence:  {"parent/guardian absence", "[FAMILY INFO REMOVED]"},
	CategorySchoolName:       {"school name", "[SCHOOL REMOVED]"},
	CategoryTeacherName:      {"teacher name", "[TEACHER NAME REMOVED]"},
	CategoryFullName:         {"full name", "[NAME REMOVED]"},
	CategoryMedicalInfo:      {"medical information", "[MEDICAL INFO REMOVED]"},
	CategoryLocation:         {"location", "[LOCATION REMOVED]"},
	CategoryBirthdate:        {"birthdate", "[BIRTHDATE REMOVED]"},
	CategoryAge:              {"age information", "[AGE REMOVED]"},
	CategoryPassword:         {"password", "[PASSWORD REMOVED]"},
	CategoryExternalPlatform: {"external platform", "[PLATFORM REMOVED]"},
	CategoryViolenceSelfHarm: {"violent or self-harm content", "[VIOLENT CONTENT REMOVED]"},
	CategoryNegativeSelfTalk: {"negative self-talk", "[NEGATIVE SELF-TALK REMOVED]"},
	CategorySexualContent:    {"sexual content", "[INAPPROPRIATE CONTENT REMOVED]"},
	CategoryExternalLink:     {"external link", "[LINK REMOVED]"},
	CategoryEmbeddedImage:    {"embedded image", "[IMAGE REMOVED]"},
}

// Label is the human readable name used in Verdict.Reason.
func (c Category) Label() string {
	if info, ok := categories[c]; ok {
		return info.label
	}
	return string(c)
}

// Token is the fixed literal substituted for every matched span.
func (c Category) Token() string {
	if info, ok := categories[c]; ok {
		return info.token
	}
	return "[REMOVED]"
}
