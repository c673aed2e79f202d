package rtf

import "golang.org/x/text/encoding/charmap"

// destinations are control words that open a group whose content is never
// rendered as document text.
var destinations = toSet(
	"aftncn", "aftnsep", "aftnsepc", "annotation", "atnauthor", "atndate",
	"atnicn", "atnid", "atnparent", "atnref", "atntime", "atrfend", "atrfstart",
	"author", "background", "bkmkend", "bkmkstart", "blipuid", "buptim",
	"category", "colorschememapping", "colortbl", "comment", "company",
	"creatim", "datafield", "datastore", "defchp", "defpap", "do", "doccomm",
	"docvar", "dptxbxtext", "ebcend", "ebcstart", "factoidname", "falt",
	"fchars", "ffdeftext", "ffentrymcr", "ffexitmcr", "ffformat", "ffhelptext",
	"ffl", "ffname", "ffstattext", "field", "file", "filetbl", "fldinst",
	"fldrslt", "fldtype", "fname", "fontemb", "fontfile", "fonttbl", "footer",
	"footerf", "footerl", "footerr", "footnote", "formfield", "ftncn", "ftnsep",
	"ftnsepc", "g", "generator", "gridtbl", "header", "headerf", "headerl",
	"headerr", "hl", "hlfr", "hlinkbase", "hlloc", "hlsrc", "hsv", "htmltag",
	"info", "keycode", "keywords", "latentstyles", "lchars", "levelnumbers",
	"leveltext", "lfolevel", "linkval", "list", "listlevel", "listname",
	"listoverride", "listoverridetable", "listpicture", "liststylename",
	"listtable", "listtext", "lsdlockedexcept", "macc", "maccPr", "mailmerge",
	"maln", "malnScr", "manager", "margPr", "mbar", "mbarPr", "mbaseJc",
	"mbegChr", "mborderBox", "mborderBoxPr", "mbox", "mboxPr", "mchr",
	"mcount", "mctrlPr", "md", "mdeg", "mdegHide", "mden", "mdiff", "mdPr",
	"me", "mendChr", "meqArr", "meqArrPr", "mf", "mfName", "mfPr", "mfunc",
	"mfuncPr", "mgroupChr", "mgroupChrPr", "mgrow", "mhideBot", "mhideLeft",
	"mhideRight", "mhideTop", "mhtmltag", "mlim", "mlimloc", "mlimlow",
	"mlimlowPr", "mlimupp", "mlimuppPr", "mm", "mmaddfieldname", "mmath",
	"mmathPict", "mmathPr", "mmaxdist", "mmc", "mmcJc", "mmconnectstr",
	"mmconnectstrdata", "mmcPr", "mmcs", "mmdatasource", "mmheadersource",
	"mmmailsubject", "mmodso", "mmodsofilter", "mmodsofldmpdata",
	"mmodsomappedname", "mmodsoname", "mmodsorecipdata", "mmodsosort",
	"mmodsosrc", "mmodsotable", "mmodsoudl", "mmodsoudldata",
	"mmodsouniquetag", "mmPr", "mmquery", "mmr", "mnary", "mnaryPr",
	"mnoBreak", "mnum", "mobjDist", "moMath", "moMathPara", "moMathParaPr",
	"mopEmu", "mphant", "mphantPr", "mplcHide", "mpos", "mr", "mrad",
	"mradPr", "mrPr", "msepChr", "mshow", "mshp", "msPre", "msPrePr", "msSub",
	"msSubPr", "msSubSup", "msSubSupPr", "msSup", "msSupPr", "mstrikeBLTR",
	"mstrikeH", "mstrikeTLBR", "mstrikeV", "msub", "msubHide", "msup",
	"msupHide", "mtransp", "mtype", "mvertJc", "mvfmf", "mvfml", "mvtof",
	"mvtol", "mzeroAsc", "mzeroDesc", "mzeroWid", "nesttableprops",
	"nextfile", "nonesttables", "objalias", "objclass", "objdata", "object",
	"objname", "objsect", "objtime", "oldcprops", "oldpprops", "oldsprops",
	"oldtprops", "oleclsid", "operator", "panose", "password",
	"passwordhash", "pgp", "pgptbl", "picprop", "pict", "pn", "pnseclvl",
	"pntext", "pntxta", "pntxtb", "printim", "private", "propname", "protend",
	"protstart", "protusertbl", "pxe", "result", "revtbl", "revtim",
	"rsidtbl", "rxe", "shp", "shpgrp", "shpinst", "shppict", "shprslt",
	"shptxt", "sn", "sp", "staticval", "stylesheet", "subject", "sv", "svb",
	"tc", "template", "themedata", "title", "txe", "ud", "upr", "userprops",
	"wgrffmtfilter", "windowcaption", "writereservation", "writereservhash",
	"xe", "xform", "xmlattrname", "xmlattrvalue", "xmlclose", "xmlname",
	"xmlnstbl", "xmlopen",
)

// specialChars map control words to the literal text they render as.
var specialChars = map[string]string{
	"par":       "\n",
	"sect":      "\n\n",
	"page":      "\n\n",
	"line":      "\n",
	"tab":       "\t",
	"emdash":    "—",
	"endash":    "–",
	"emspace":   "\u2003",
	"enspace":   "\u2002",
	"qmspace":   "\u2005",
	"bullet":    "•",
	"lquote":    "‘",
	"rquote":    "’",
	"ldblquote": "“",
	"rdblquote": "”",
}

// charsetWords select the code page used for \'xx escapes.
var charsetWords = map[string]*charmap.Charmap{
	"ansi": charmap.Windows1252,
	"mac":  charmap.Macintosh,
	"pc":   charmap.CodePage437,
	"pca":  charmap.CodePage850,
}

// codePages maps \ansicpgN values to single-byte code pages. Multi-byte code
// pages are not supported and keep the current code page.
var codePages = map[int]*charmap.Charmap{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	852:   charmap.CodePage852,
	866:   charmap.CodePage866,
	874:   charmap.Windows874,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	10000: charmap.Macintosh,
}

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
