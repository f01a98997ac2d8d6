package voxflow

// Version is the current release of voxflow.
var Version = "0.1.0"
