package ws2md

// VERSION is stamped into generated file headers
const VERSION = "v0.1.0"
