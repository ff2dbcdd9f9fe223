package ir

// ToolVersion is the citesync release version.
const ToolVersion = "0.1.0"
