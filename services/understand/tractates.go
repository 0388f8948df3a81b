// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package understand

import (
	"fmt"
	"regexp"
	"strings"
)

// tractateNames maps common citation spellings (yeshivish and
// academic) to the canonical corpus tractate name.
var tractateNames = map[string]string{
	"brachos": "Berakhot", "berachos": "Berakhot", "berakhot": "Berakhot",
	"shabbos": "Shabbat", "shabbat": "Shabbat",
	"eruvin":   "Eruvin",
	"pesachim": "Pesachim",
	"yoma":     "Yoma",
	"sukkah":   "Sukkah", "succah": "Sukkah",
	"beitzah": "Beitzah",
	"taanis":  "Taanit", "taanit": "Taanit",
	"megillah": "Megillah",
	"chagigah": "Chagigah",
	"yevamos":  "Yevamot", "yevamot": "Yevamot",
	"kesubos": "Ketubot", "ketubot": "Ketubot", "kesuvos": "Ketubot",
	"nedarim": "Nedarim",
	"nazir":   "Nazir",
	"sotah":   "Sotah",
	"gittin":  "Gittin",
	"kiddushin": "Kiddushin",
	"sanhedrin": "Sanhedrin",
	"makkos":    "Makkot", "makkot": "Makkot",
	"shevuos": "Shevuot", "shevuot": "Shevuot",
	"horayos": "Horayot", "horayot": "Horayot",
	"zevachim": "Zevachim",
	"menachos": "Menachot", "menachot": "Menachot",
	"chullin":  "Chullin",
	"bechoros": "Bekhorot", "bekhorot": "Bekhorot",
	"erchin":   "Arakhin", "arakhin": "Arakhin",
	"temurah":  "Temurah",
	"kerisus":  "Keritot", "keritot": "Keritot",
	"meilah":   "Meilah",
	"niddah":   "Niddah",
}

// twoWordTractates maps the space-separated tractates.
var twoWordTractates = map[string]string{
	"rosh hashana": "Rosh Hashanah", "rosh hashanah": "Rosh Hashanah",
	"moed katan":  "Moed Katan",
	"bava kama":   "Bava Kamma", "bava kamma": "Bava Kamma",
	"bava metzia": "Bava Metzia", "bava metziah": "Bava Metzia",
	"bava basra": "Bava Batra", "bava batra": "Bava Batra",
	"avodah zarah": "Avodah Zarah", "avoda zara": "Avodah Zarah",
}

// dafPattern matches a daf citation: an amud number plus side.
var dafPattern = regexp.MustCompile(`^(\d{1,3})([ab])$`)

// CanonicalTractate resolves a tractate spelling, single or two-word.
func CanonicalTractate(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if c, ok := twoWordTractates[name]; ok {
		return c, true
	}
	c, ok := tractateNames[name]
	return c, ok
}

// DetectDirectRef scans a normalized query for a tractate name
// followed by a daf citation ("pesachim 4b") and returns the
// canonical ref.
func DetectDirectRef(normQuery string) (string, bool) {
	tokens := strings.Fields(normQuery)
	for i := 0; i < len(tokens)-1; i++ {
		var tractate string
		next := i + 1
		if i+2 < len(tokens) {
			if c, ok := twoWordTractates[tokens[i]+" "+tokens[i+1]]; ok {
				tractate = c
				next = i + 2
			}
		}
		if tractate == "" {
			if c, ok := tractateNames[tokens[i]]; ok {
				tractate = c
			}
		}
		if tractate == "" || next >= len(tokens) {
			continue
		}
		if m := dafPattern.FindStringSubmatch(tokens[next]); m != nil {
			return fmt.Sprintf("%s %s%s", tractate, m[1], m[2]), true
		}
	}
	return "", false
}
