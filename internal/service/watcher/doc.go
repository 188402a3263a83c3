// Package watcher implements alert-watcher, the background companion of
// alert-device. It polls the shared alert document and turns edges into
// desktop notifications: a rising edge shows the alert (or a quiet notice in
// silent mode) and a falling edge withdraws it. While an alert-device
// process is running the watcher stays quiet and leaves the alert to it.
package watcher
