package wiretap

// userCategoryNodes are the tool-category placeholders every user receives.
var userCategoryNodes = []string{
	"2dtransform", "3dblur", "CreatedBy", "action", "audio", "automatte",
	"autostabilize", "average", "batch", "batchclip", "blur", "bumpDisplace",
	"burnin", "burnmetadata", "channelEditor", "check", "clamp", "colourframe",
	"colourpicker", "colourwarper", "combine", "comp", "composite", "compound",
	"correct", "damage", "deal", "deform", "degrain", "deinterlace",
	"deliverables", "denoise", "depthOfField", "desktop", "difference",
	"dissolve", "distort", "dve", "edgeDetect", "editdesk", "exposure",
	"fieldmerge", "filter", "flip", "gatewayImport", "glow", "gradient",
	"guides", "hotkey", "interlace", "keyerChannel", "keyerHLS", "keyerRGB",
	"keyerRGBCMYL", "keyerYUV", "letterbox", "logicop", "logo", "look",
	"lut", "mapConvert", "mask", "matchbox", "mediaImport", "modularKeyer",
	"mono", "morf", "motif", "motionAnalyse", "motionBlur", "paint",
	"pixelspread", "play", "posterize", "pulldown", "pybox", "recursiveOps",
	"regrain", "resize", "separate", "stabilizer", "status", "stereo",
	"stereoAnaglyph", "stereoInterlace", "stereoToolbox", "stylize",
	"substance", "tangentPanel", "text", "timewarp", "tmp", "vectorViewer", "viewing",
}

// UserCategoryNodes returns the names of the nodes CreateUser adds under a
// new user, in creation order.
func UserCategoryNodes() []string {
	out := make([]string, len(userCategoryNodes))
	copy(out, userCategoryNodes)
	return out
}
