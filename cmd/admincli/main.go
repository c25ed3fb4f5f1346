// Package main provides the admin CLI entry point.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/campusbgm/internal/api/connect"
)

var (
	app    = kingpin.New("campusbgm-admincli", "School website background music admin client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Admin token (or set ADMIN_TOKEN env)").Envar("ADMIN_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Get playback status")

	// watch command
	watchCmd = app.Command("watch", "Stream playback events")

	// music commands
	musicCmd        = app.Command("music", "Background music settings")
	musicShowCmd    = musicCmd.Command("show", "Show music settings").Default()
	musicEnableCmd  = musicCmd.Command("enable", "Enable background music")
	musicDisableCmd = musicCmd.Command("disable", "Disable background music")
	musicURLCmd     = musicCmd.Command("url", "Set the track URL")
	musicURL        = musicURLCmd.Arg("url", "Audio URL").Required().String()
	musicVolumeCmd  = musicCmd.Command("volume", "Set the volume")
	musicVolume     = musicVolumeCmd.Arg("volume", "Volume between 0 and 1").Required().Float64()
	musicWindowCmd  = musicCmd.Command("window", "Set the playback window (seconds)")
	windowStart     = musicWindowCmd.Flag("start", "Start offset").Default("0").Float64()
	windowEnd       = musicWindowCmd.Flag("end", "Loop back to start at this offset (0 = natural end)").Default("0").Float64()
	windowDuration  = musicWindowCmd.Flag("duration", "Stop after this many seconds (0 = unbounded)").Default("0").Float64()

	// site settings commands
	settingsCmd      = app.Command("settings", "Site settings")
	settingsShowCmd  = settingsCmd.Command("show", "Show all site settings").Default()
	settingsSetCmd   = settingsCmd.Command("set", "Set a site setting")
	settingsSetKey   = settingsSetCmd.Arg("key", "Setting key").Required().String()
	settingsSetValue = settingsSetCmd.Arg("value", "Setting value").Required().String()

	// audio commands
	audioCmd         = app.Command("audio", "Audio files")
	audioUploadCmd   = audioCmd.Command("upload", "Upload an audio file")
	audioUploadFile  = audioUploadCmd.Arg("file", "Audio file").Required().ExistingFile()
	audioUploadUse   = audioUploadCmd.Flag("use", "Set the uploaded file as the background music").Bool()
	audioValidateCmd = audioCmd.Command("validate", "Check an audio file against the upload rules")
	audioValidate    = audioValidateCmd.Arg("file", "Audio file").Required().ExistingFile()
	audioDeleteCmd   = audioCmd.Command("delete", "Delete an uploaded audio file")
	audioDeletePath  = audioDeleteCmd.Arg("path", "Storage path or public URL").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Check admin token
	if *token == "" {
		fmt.Println("Error: admin token is required (use --token or ADMIN_TOKEN env)")
		os.Exit(1)
	}

	// Create client
	client := apiconnect.NewAdminServiceClient(
		http.DefaultClient,
		*server,
	)

	ctx := context.Background()

	// Execute command
	switch command {
	case statusCmd.FullCommand():
		status(ctx, client)
	case watchCmd.FullCommand():
		watch(ctx, client)
	case musicShowCmd.FullCommand():
		showMusic(ctx, client)
	case musicEnableCmd.FullCommand():
		updateMusic(ctx, client, func(s *apiconnect.MusicSettings) { s.Enabled = true })
	case musicDisableCmd.FullCommand():
		updateMusic(ctx, client, func(s *apiconnect.MusicSettings) { s.Enabled = false })
	case musicURLCmd.FullCommand():
		updateMusic(ctx, client, func(s *apiconnect.MusicSettings) { s.URL = *musicURL })
	case musicVolumeCmd.FullCommand():
		updateMusic(ctx, client, func(s *apiconnect.MusicSettings) { s.Volume = *musicVolume })
	case musicWindowCmd.FullCommand():
		updateMusic(ctx, client, func(s *apiconnect.MusicSettings) {
			s.StartTime = *windowStart
			s.EndTime = *windowEnd
			s.Duration = *windowDuration
		})
	case settingsShowCmd.FullCommand():
		showSettings(ctx, client)
	case settingsSetCmd.FullCommand():
		setSetting(ctx, client, *settingsSetKey, *settingsSetValue)
	case audioUploadCmd.FullCommand():
		upload(ctx, client, *audioUploadFile, *audioUploadUse)
	case audioValidateCmd.FullCommand():
		validate(ctx, client, *audioValidate)
	case audioDeleteCmd.FullCommand():
		deleteAudio(ctx, client, *audioDeletePath)
	}
}

func newRequest[T any](msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set(apiconnect.AdminTokenHeader, *token)
	return req
}

func fail(err error) {
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}

func status(ctx context.Context, client *apiconnect.AdminServiceClient) {
	resp, err := client.GetPlaybackStatus(ctx, newRequest(&apiconnect.GetPlaybackStatusRequest{}))
	if err != nil {
		fail(err)
	}

	s := resp.Msg.Status
	fmt.Println("\n=== BACKGROUND MUSIC STATUS ===")
	fmt.Printf("State: %s\n", formatState(s.State))
	if !s.HasSettings {
		fmt.Println("Settings not loaded yet")
	}
	if s.URL != "" {
		fmt.Printf("Source: %s\n", s.URL)
	}
	fmt.Printf("Volume: %.0f%% (output gain %.2f%%)\n", s.Settings.Volume*100, s.Gain*100)
	fmt.Printf("Window: %s\n", formatWindow(s.Settings))
	fmt.Printf("Interaction unlocked: %v\n", s.Unlocked)
	if len(s.ArmedTriggers) > 0 {
		fmt.Printf("Waiting for: %s\n", strings.Join(s.ArmedTriggers, ", "))
	}
	if s.StartedAt != nil {
		fmt.Printf("Started at: %s\n", s.StartedAt.Local().Format("15:04:05"))
	}
	if s.Length > 0 {
		fmt.Printf("Position: %.1fs / %.1fs\n", s.Elapsed, s.Length)
	} else if s.Elapsed > 0 {
		fmt.Printf("Position: %.1fs\n", s.Elapsed)
	}
	if s.LastError != "" {
		fmt.Printf("Last error: %s\n", s.LastError)
	}
	fmt.Println()
}

func watch(ctx context.Context, client *apiconnect.AdminServiceClient) {
	stream, err := client.WatchPlayback(ctx, newRequest(&apiconnect.WatchPlaybackRequest{}))
	if err != nil {
		fail(err)
	}
	defer stream.Close()

	for stream.Receive() {
		n := stream.Msg()
		line := fmt.Sprintf("#%d %-15s state=%s", n.SequenceNo, n.Type, n.State)
		if n.URL != "" {
			line += " url=" + n.URL
		}
		if n.Reason != "" {
			line += " reason=" + n.Reason
		}
		if n.Error != "" {
			line += " error=" + n.Error
		}
		fmt.Println(line)
	}
	if err := stream.Err(); err != nil {
		fail(err)
	}
}

func showMusic(ctx context.Context, client *apiconnect.AdminServiceClient) {
	resp, err := client.GetMusicSettings(ctx, newRequest(&apiconnect.GetMusicSettingsRequest{}))
	if err != nil {
		fail(err)
	}

	s := resp.Msg.Settings
	fmt.Printf("Enabled: %v\n", s.Enabled)
	fmt.Printf("URL: %s\n", s.URL)
	fmt.Printf("Volume: %.0f%% (effective %.2f%%)\n", resp.Msg.VolumePercent, resp.Msg.GainPercent)
	fmt.Printf("Window: %s\n", formatWindow(s))
}

func updateMusic(ctx context.Context, client *apiconnect.AdminServiceClient, mutate func(*apiconnect.MusicSettings)) {
	current, err := client.GetMusicSettings(ctx, newRequest(&apiconnect.GetMusicSettingsRequest{}))
	if err != nil {
		fail(err)
	}

	s := current.Msg.Settings
	mutate(&s)

	resp, err := client.UpdateMusicSettings(ctx, newRequest(&apiconnect.UpdateMusicSettingsRequest{Settings: s}))
	if err != nil {
		fail(err)
	}
	if !resp.Msg.Success {
		fmt.Printf("Failed: %s\n", resp.Msg.Message)
		os.Exit(1)
	}
	fmt.Printf("Music settings updated (effective volume %.2f%%)\n", resp.Msg.GainPercent)
}

func showSettings(ctx context.Context, client *apiconnect.AdminServiceClient) {
	resp, err := client.GetSiteSettings(ctx, newRequest(&apiconnect.GetSiteSettingsRequest{}))
	if err != nil {
		fail(err)
	}

	keys := make([]string, 0, len(resp.Msg.Settings))
	for k := range resp.Msg.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("Site settings (%d):\n", len(keys))
	for _, k := range keys {
		fmt.Printf("  %s = %s\n", k, resp.Msg.Settings[k])
	}
}

func setSetting(ctx context.Context, client *apiconnect.AdminServiceClient, key, value string) {
	resp, err := client.UpdateSiteSetting(ctx, newRequest(&apiconnect.UpdateSiteSettingRequest{Key: key, Value: value}))
	if err != nil {
		fail(err)
	}
	if !resp.Msg.Success {
		fmt.Printf("Failed: %s\n", resp.Msg.Message)
		os.Exit(1)
	}
	fmt.Printf("%s updated\n", key)
}

func validate(ctx context.Context, client *apiconnect.AdminServiceClient, path string) {
	info, err := os.Stat(path)
	if err != nil {
		fail(err)
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		fail(err)
	}

	resp, err := client.ValidateAudio(ctx, newRequest(&apiconnect.ValidateAudioRequest{
		Name:        filepath.Base(path),
		ContentType: mtype.String(),
		Size:        info.Size(),
	}))
	if err != nil {
		fail(err)
	}
	if resp.Msg.Valid {
		fmt.Printf("OK: %s (%s, %d bytes)\n", filepath.Base(path), mtype.String(), info.Size())
		return
	}
	fmt.Printf("Rejected [%s]: %s\n", resp.Msg.Code, resp.Msg.Message)
	os.Exit(1)
}

func upload(ctx context.Context, client *apiconnect.AdminServiceClient, path string, use bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		fail(err)
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(path)))
	h.Set("Content-Type", mimetype.Detect(data).String())
	part, err := mw.CreatePart(h)
	if err != nil {
		fail(err)
	}
	if _, err := part.Write(data); err != nil {
		fail(err)
	}
	if err := mw.Close(); err != nil {
		fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(*server, "/")+apiconnect.UploadPath, body)
	if err != nil {
		fail(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(apiconnect.AdminTokenHeader, *token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fail(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		fail(err)
	}
	var result apiconnect.UploadAudioResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		fail(fmt.Errorf("unexpected response (%d): %s", resp.StatusCode, string(raw)))
	}
	if !result.Success {
		fmt.Printf("Rejected [%s]: %s\n", result.Code, result.Message)
		os.Exit(1)
	}

	fmt.Printf("Uploaded: %s\n", result.URL)
	fmt.Printf("Path: %s\n", result.Path)

	if use {
		updateMusic(ctx, client, func(s *apiconnect.MusicSettings) { s.URL = result.URL })
	}
}

func deleteAudio(ctx context.Context, client *apiconnect.AdminServiceClient, path string) {
	resp, err := client.DeleteAudio(ctx, newRequest(&apiconnect.DeleteAudioRequest{Path: path}))
	if err != nil {
		fail(err)
	}
	if !resp.Msg.Success {
		fmt.Printf("Failed: %s\n", resp.Msg.Message)
		os.Exit(1)
	}
	fmt.Println("Audio file deleted")
}

func formatState(state string) string {
	switch state {
	case "idle":
		return "Idle (waiting for settings)"
	case "disabled":
		return "Disabled"
	case "loaded":
		return "Loaded (waiting to play)"
	case "playing":
		return "Playing"
	default:
		return "Unknown"
	}
}

func formatWindow(s apiconnect.MusicSettings) string {
	switch {
	case s.Duration > 0:
		return fmt.Sprintf("from %.1fs, stop after %.1fs", s.StartTime, s.Duration)
	case s.EndTime > 0:
		return fmt.Sprintf("loop %.1fs - %.1fs", s.StartTime, s.EndTime)
	case s.StartTime > 0:
		return fmt.Sprintf("from %.1fs, whole track", s.StartTime)
	default:
		return "whole track"
	}
}
