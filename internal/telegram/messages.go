// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telegram

const (
	msgWelcome = `Hi! 👋

I extract the audio track from YouTube videos.
Send me a link and you get an audio file back.

Formats are Opus and the original YouTube audio (usually AAC).
No MP3 conversion: current devices play these natively.`

	msgHelp = `📖 *How to use:*
1. Send a YouTube link
2. Pick a format (original or compressed Opus)
3. Wait for the file

*Limits:*
- Maximum file size: %s
- Larger videos are offered as lower bitrate Opus`

	msgHelpAdmin = "\n\n*Admin commands:*\n/versions - component versions"

	msgFetching      = "🔍 Fetching video info..."
	msgDownloading   = "⏳ Downloading audio..."
	msgDone          = "✅ Done!"
	msgSendFailed    = "❌ Could not send the file. Try again later."
	msgSelectFormat  = "🎵 *%s*\n⏱ Duration: %s\n\nChoose a format:"
	msgErrorPrefix   = "❌ "
	msgVersionsTitle = "🔧 Component versions:\n"
)
