// Package jurisdiction declares per-jurisdiction profiles: where documents
// live, which acquisition tiers apply, and which extraction pattern set to
// use. Profiles are data; the fetcher and extraction engine are written once
// and parameterized by a profile.
package jurisdiction

// Profile describes one jurisdiction's document sources.
type Profile struct {
	// Name is the short jurisdiction code, e.g. "ny". It scopes the cache
	// directory so two jurisdictions never share cached artifacts.
	Name string

	// APIURLTemplate is the structured-API endpoint; %s is the ruling id.
	APIURLTemplate string

	// PageURLTemplate is the public HTML page; %s is the ruling id.
	PageURLTemplate string

	// DocURLTemplate is the legacy document download endpoint;
	// first verb is the year, second is the ruling id.
	DocURLTemplate string

	// YearCandidates are tried in order when downloading legacy documents.
	// The endpoint shards documents by issue year, which callers do not know.
	YearCandidates []int
}

// NY is the New York ruling division profile.
func NY() Profile {
	return Profile{
		Name:            "ny",
		APIURLTemplate:  "https://rulings.cbp.gov/api/ruling/%s",
		PageURLTemplate: "https://rulings.cbp.gov/ruling/%s",
		DocURLTemplate:  "https://rulings.cbp.gov/api/getdoc/ny/%d/%s.doc",
		YearCandidates:  []int{2026, 2025, 2024, 2023, 2022, 2021, 2020, 2019, 2018, 2017, 2016, 2015},
	}
}

// ByName resolves a jurisdiction code to its profile. Unknown codes return
// false; callers treat that as a configuration error.
func ByName(name string) (Profile, bool) {
	switch name {
	case "ny":
		return NY(), true
	default:
		return Profile{}, false
	}
}
