// Package ui is ferry's terminal interface, built on Bubble Tea.
//
// # Views
//
//   - Jobs: the upload list, newest first, beside a detail pane for the
//     selected upload. The detail pane shows the status label, remote job id,
//     download URL and any progress counters the service reported. Counters
//     that were never reported stay blank.
//   - Log: ferry's own log file, followed live and coloured by level.
//
// # Actions
//
// u opens a path prompt seeded with the last directory used. Submitting an
// empty prompt does nothing. r checks the selected upload, d downloads it once
// it is Completed, and x exports every upload in the session to a spreadsheet.
// All network work runs in tea.Cmd functions against the tracker, so the
// model never blocks.
//
// # Refresh
//
// A tick re-reads the state.Store snapshot every PollTick. The poller in the
// app package owns background checking; the UI only reflects what it finds.
//
// # Themes
//
// T cycles Nightfox, Kanagawa and Slate. The choice is saved in the prefs file
// together with the last upload directory.
package ui
