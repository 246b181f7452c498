package bot

// Animation URLs shown on the start screen and around the gate flow.
const (
	startGIF    = "https://i.gifer.com/4tN0.gif"
	forceSubGIF = "https://i.gifer.com/LRP3.gif"
	verifyGIF   = "https://i.gifer.com/91Rt.gif"
)

const helpText = `<b>🆘 Help Menu</b>

Use this bot to store &amp; share media files.

<b>Everyone:</b>
/start — open the bot or follow a share link

<b>Owner:</b>
Forward a start and an end message from the source channel to ingest the range between them.
/ingest a b — ingest an explicit message-ID range
/resetrange — reset the range selection
/setsource id — set the source channel
/settings — toggles and required channels
/forcesub add|remove|list — manage required channels
/users — audience size
/broadcast — reply to a message to fan it out`

const aboutText = `<b>ℹ️ About</b>

A file-store bot: the owner curates media, everyone else retrieves it
through share links, optionally gated behind channel membership.`

const legalText = `<b>📜 Copyright &amp; Legal Disclaimer</b>

This bot is provided for <b>educational</b>, <b>testing</b>, and <b>personal file management</b> purposes only.

All media shared through this bot is sourced from third-party platforms. The bot does not host, permanently store, or claim ownership over any copyrighted material.

<b>Prohibited:</b> uploading or distributing copyrighted content without permission, piracy, redistribution, or any illegal usage.

Users are solely responsible for the content they upload, share, or access. By using this bot you agree to comply with all applicable laws.`

const ownerInfoText = `<b>🌟 Owner</b>

Questions about stored content go to the bot operator.`

const welcomeText = `Hey <b>%s</b> 😄✨

Welcome to your File Store Bot 🚀
Open a share link &amp; get your files instantly 💫`
