// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package authors

// builtinAuthors is the static catalog. Keys double as the default
// target-author identifiers carried in search strategies.
var builtinAuthors = []Author{
	{
		Key:         "rashi",
		PrimaryName: "רש\"י",
		Variations:  []string{"rashi", "r'shi", "shlomo yitzchaki"},
		Era:         EraRishonim,
		Region:      "France",
		Works:       []string{"Rashi on Talmud", "Rashi on Torah"},
		RefPrefix:   "Rashi on",
		Level:       "rashi",
	},
	{
		Key:         "tosfos",
		PrimaryName: "תוספות",
		Variations:  []string{"tosfos", "tosafot", "tosafos", "tosfot", "baalei hatosfos"},
		Era:         EraRishonim,
		Region:      "France/Germany",
		Works:       []string{"Tosafot on Talmud"},
		RefPrefix:   "Tosafot on",
		Level:       "tosfos",
	},
	{
		Key:         "rambam",
		PrimaryName: "רמב\"ם",
		Variations:  []string{"rambam", "maimonides", "mishneh torah", "moshe ben maimon"},
		Era:         EraRishonim,
		Region:      "Spain/Egypt",
		Works:       []string{"Mishneh Torah", "Moreh Nevuchim", "Peirush HaMishnayos"},
		Level:       "rambam",
	},
	{
		Key:         "ramban",
		PrimaryName: "רמב\"ן",
		Variations:  []string{"ramban", "nachmanides", "moshe ben nachman"},
		Era:         EraRishonim,
		Region:      "Spain",
		Works:       []string{"Ramban on Torah", "Milchamos Hashem", "Chiddushei HaRamban"},
		RefPrefix:   "Ramban on",
		Level:       "rishonim",
	},
	{
		Key:         "rashba",
		PrimaryName: "רשב\"א",
		Variations:  []string{"rashba", "shlomo ben aderes"},
		Era:         EraRishonim,
		Region:      "Spain",
		Works:       []string{"Chiddushei HaRashba", "Teshuvos HaRashba"},
		RefPrefix:   "Rashba on",
		Level:       "rishonim",
	},
	{
		Key:         "ritva",
		PrimaryName: "ריטב\"א",
		Variations:  []string{"ritva", "yom tov asevilli"},
		Era:         EraRishonim,
		Region:      "Spain",
		Works:       []string{"Chiddushei HaRitva"},
		RefPrefix:   "Ritva on",
		Level:       "rishonim",
	},
	{
		Key:         "ran",
		PrimaryName: "ר\"ן",
		Variations:  []string{"ran", "nissim gerondi"},
		Era:         EraRishonim,
		Region:      "Spain",
		Works:       []string{"Ran on Nedarim", "Chiddushei HaRan"},
		RefPrefix:   "Ran on",
		Level:       "rishonim",
	},
	{
		Key:         "rosh",
		PrimaryName: "רא\"ש",
		Variations:  []string{"rosh", "asher ben yechiel", "rabbeinu asher"},
		Era:         EraRishonim,
		Region:      "Germany/Spain",
		Works:       []string{"Piskei HaRosh", "Tosfos HaRosh"},
		RefPrefix:   "Rosh on",
		Level:       "rishonim",
	},
	{
		Key:         "rif",
		PrimaryName: "רי\"ף",
		Variations:  []string{"rif", "yitzchak alfasi", "alfasi"},
		Era:         EraRishonim,
		Region:      "North Africa",
		Works:       []string{"Hilchos HaRif"},
		RefPrefix:   "Rif on",
		Level:       "rishonim",
	},
	{
		Key:         "tur",
		PrimaryName: "טור",
		Variations:  []string{"tur", "baal haturim", "yaakov ben asher", "arba turim"},
		Era:         EraRishonim,
		Region:      "Spain",
		Works:       []string{"Tur"},
		Level:       "tur",
	},
	{
		Key:         "mechaber",
		PrimaryName: "בית יוסף",
		Variations:  []string{"mechaber", "beis yosef", "beit yosef", "shulchan aruch", "shulchan arukh", "yosef karo", "maran"},
		Era:         EraAcharonim,
		Region:      "Israel",
		Works:       []string{"Shulchan Arukh", "Beit Yosef", "Kesef Mishneh"},
		Level:       "shulchan-aruch",
	},
	{
		Key:         "rema",
		PrimaryName: "רמ\"א",
		Variations:  []string{"rema", "rama", "moshe isserles"},
		Era:         EraAcharonim,
		Region:      "Poland",
		Works:       []string{"Rema on Shulchan Arukh", "Darchei Moshe"},
		Level:       "shulchan-aruch",
	},
	{
		Key:         "shach",
		PrimaryName: "ש\"ך",
		Variations:  []string{"shach", "sifsei kohen", "shabsai kohen"},
		Era:         EraAcharonim,
		Region:      "Lithuania",
		Works:       []string{"Siftei Kohen"},
		RefPrefix:   "Siftei Kohen on",
		Level:       "nosei-keilim",
	},
	{
		Key:         "taz",
		PrimaryName: "ט\"ז",
		Variations:  []string{"taz", "turei zahav", "dovid halevi"},
		Era:         EraAcharonim,
		Region:      "Poland",
		Works:       []string{"Turei Zahav"},
		RefPrefix:   "Turei Zahav on",
		Level:       "nosei-keilim",
	},
	{
		Key:         "magen-avraham",
		PrimaryName: "מגן אברהם",
		Variations:  []string{"magen avraham", "magen avrohom", "avraham gombiner"},
		Era:         EraAcharonim,
		Region:      "Poland",
		Works:       []string{"Magen Avraham"},
		RefPrefix:   "Magen Avraham on",
		Level:       "nosei-keilim",
	},
	{
		Key:         "mishnah-berurah",
		PrimaryName: "משנה ברורה",
		Variations:  []string{"mishnah berurah", "mishna brura", "chofetz chaim", "yisrael meir kagan"},
		Era:         EraAcharonim,
		Region:      "Lithuania",
		Works:       []string{"Mishnah Berurah", "Biur Halacha"},
		Level:       "acharonim",
	},
	{
		Key:         "ketzos",
		PrimaryName: "קצות החושן",
		Variations:  []string{"ketzos", "ketzos hachoshen", "kezos", "aryeh leib heller"},
		Era:         EraAcharonim,
		Region:      "Galicia",
		Works:       []string{"Ketzot HaChoshen"},
		Level:       "acharonim",
	},
	{
		Key:         "nesivos",
		PrimaryName: "נתיבות המשפט",
		Variations:  []string{"nesivos", "nesivos hamishpat", "netivot", "yaakov lorberbaum"},
		Era:         EraAcharonim,
		Region:      "Poland",
		Works:       []string{"Netivot HaMishpat"},
		Level:       "acharonim",
	},
	{
		Key:         "maharsha",
		PrimaryName: "מהרש\"א",
		Variations:  []string{"maharsha", "shmuel eidels"},
		Era:         EraAcharonim,
		Region:      "Poland",
		Works:       []string{"Maharsha on Talmud"},
		RefPrefix:   "Maharsha on",
		Level:       "acharonim",
	},
	{
		Key:         "pnei-yehoshua",
		PrimaryName: "פני יהושע",
		Variations:  []string{"pnei yehoshua", "pne yehoshua", "yaakov yehoshua falk"},
		Era:         EraAcharonim,
		Region:      "Poland/Germany",
		Works:       []string{"Penei Yehoshua"},
		RefPrefix:   "Penei Yehoshua on",
		Level:       "acharonim",
	},
	{
		Key:         "rabbi-akiva-eiger",
		PrimaryName: "רבי עקיבא איגר",
		Variations:  []string{"rabbi akiva eiger", "akiva eiger", "rebbe akiva eiger", "gilyon hashas"},
		Era:         EraAcharonim,
		Region:      "Poland",
		Works:       []string{"Gilyon HaShas", "Teshuvos Rabbi Akiva Eiger"},
		Level:       "acharonim",
	},
	{
		Key:         "chasam-sofer",
		PrimaryName: "חתם סופר",
		Variations:  []string{"chasam sofer", "chatam sofer", "moshe sofer"},
		Era:         EraAcharonim,
		Region:      "Hungary",
		Works:       []string{"Chasam Sofer on Talmud", "Teshuvos Chasam Sofer"},
		RefPrefix:   "Chatam Sofer on",
		Level:       "acharonim",
	},
}
