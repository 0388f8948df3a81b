// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package decipher

// exceptions maps short tokens whose standard renderings the rules
// engine cannot recover (irregular orthography, silent letters,
// Aramaic spellings). Each entry lists renderings best-first. These
// never replace the rules engine; its variants are appended after.
var exceptions = map[string][]string{
	// Irregular terminal letters and silent alephs.
	"daf":     {"דף"},
	"rav":     {"רב"},
	"rov":     {"רוב"},
	"get":     {"גט"},
	"din":     {"דין"},
	"bar":     {"בר"},
	"ben":     {"בן"},
	"bas":     {"בת"},
	"shas":    {"ש\"ס"},
	"tam":     {"תם"},
	"lav":     {"לאו", "לב"},
	"kal":     {"קל"},
	"am":      {"עם"},
	"ish":     {"איש"},
	"eid":     {"עד"},
	"eidim":   {"עדים"},
	"eidus":   {"עדות"},
	"issur":   {"איסור"},
	"heter":   {"היתר"},
	"ona'ah":  {"אונאה"},
	"onaah":   {"אונאה"},
	"mum":     {"מום"},
	"sugya":   {"סוגיא", "סוגיה"},
	"sugyos":  {"סוגיות"},
	"gemara":  {"גמרא"},
	"mishna":  {"משנה"},
	"mishnah": {"משנה"},
	"halacha": {"הלכה"},
	"halocho": {"הלכה"},
	"torah":   {"תורה"},
	"toire":   {"תורה"},

	// Aramaic forms the detectors mis-weight.
	"gud":      {"גוד"},
	"achvis":   {"אחוית"},
	"migo":     {"מיגו", "מגו"},
	"miggo":    {"מיגו"},
	"chazaka":  {"חזקה"},
	"chazakah": {"חזקה"},
	"chezkas":  {"חזקת"},
	"kim":      {"קים"},
	"lei":      {"ליה"},
	"leh":      {"ליה"},
	"d'oraisa": {"דאורייתא"},
	"doraisa":  {"דאורייתא"},
	"drabanan": {"דרבנן"},
	"yeush":    {"יאוש"},
	"ye'ush":   {"יאוש"},
}

// exceptionVariants returns curated variants for a normalized word,
// or nil. Curated entries carry a high flat confidence and outrank
// generated candidates.
func exceptionVariants(w string) []Variant {
	renderings, ok := exceptions[w]
	if !ok {
		return nil
	}
	variants := make([]Variant, 0, len(renderings))
	conf := 0.95
	for _, hebrew := range renderings {
		variants = append(variants, Variant{
			Hebrew:        hebrew,
			Confidence:    conf,
			FromException: true,
		})
		conf -= 0.05
	}
	return variants
}
