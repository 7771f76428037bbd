package webdav

// Version is reported in the X-jsDAV-Version response header and in the
// <a:jsdav-version> element of every error body.
const Version = "1.0.0"
