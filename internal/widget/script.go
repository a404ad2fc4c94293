package widget

import (
	"github.com/Rrens/chatwidget/internal/config"
	"github.com/Rrens/chatwidget/internal/domain"
	"github.com/Rrens/chatwidget/internal/llm"
)

// Script holds the bot's canned texts, quick replies and prompt exemplars
type Script struct {
	Welcome             string
	IdleReminder        string
	ErrorReply          string
	FallbackReply       string
	LowConfidenceMarker string
	EndConfirmation     string
	UserLabel           string
	BotLabel            string
	DefaultResponse     string
	QuickReplies        []domain.QuickReply
	Examples            []llm.Example
}

// DefaultScript returns the built-in encryption help desk persona
func DefaultScript() Script {
	return Script{
		Welcome:             "Hi, I'm CRYPHIX BOT. How can I help you today?",
		IdleReminder:        "If you don't have any further questions, please click 'End Chat' to close this session.",
		ErrorReply:          "I'm having trouble responding now. Try again later or contact the Admin.",
		FallbackReply:       "I'm not sure I understood that. Can you rephrase or give more details?",
		LowConfidenceMarker: "I don't understand",
		EndConfirmation:     "Are you sure you want to end the chat? Your conversation will be cleared.",
		UserLabel:           "Patient",
		BotLabel:            "Assistant",
		DefaultResponse:     "I'm not sure I understand your question fully, but I'm here to help. Could you provide more details or let me know which type of file you're working with?",
		QuickReplies: []domain.QuickReply{
			{Label: "Encrypt Text", Message: "How can I encrypt a text message?"},
			{Label: "Decrypt File", Message: "How do I decrypt an uploaded file?"},
			{Label: "Supported Files", Message: "What file types can I encrypt or decrypt?"},
			{Label: "How It Works", Message: "How does encryption and decryption work?"},
			{Label: "Security Info", Message: "Is my data secure when I use this app?"},
			{Label: "Audio Encryption", Message: "Can I encrypt audio files here?"},
			{Label: "Image Decryption", Message: "How do I decrypt an encrypted image?"},
			{Label: "Mobile Access", Message: "Can I use this app on my phone?"},
			{Label: "Add Password", Message: "How do I add password protection to encryption?"},
			{Label: "Troubleshooting", Message: "Why is my decryption not working?"},
		},
		Examples: []llm.Example{
			{
				Queries:  []string{"hello", "hi", "hey"},
				Response: "Hello, welcome to our cybersecurity platform. How can I assist with your encryption or decryption needs today?",
			},
			{
				Queries:  []string{"how to encrypt", "how does encryption work"},
				Response: "You can encrypt text, images, or audio using our secure tools. Just upload your file or enter your text. Would you like help getting started?",
			},
			{
				Queries:  []string{"how to decrypt", "decrypt file"},
				Response: "Simply upload the encrypted file or input the ciphertext and provide the key if required. Would you like a guide on using our decryption tool?",
			},
			{
				Queries:  []string{"supported file types", "what files can I encrypt"},
				Response: "We support text, JPEG/PNG images, and MP3/WAV audio for encryption and decryption. Would you like to upload a file now?",
			},
			{
				Queries:  []string{"is it secure", "how secure is this app"},
				Response: "Our app uses industry-standard encryption algorithms to ensure strong data protection. Would you like technical details on our encryption methods?",
			},
			{
				Queries:  []string{"can I use this for confidential data", "is it private"},
				Response: "Yes, your data is processed securely and never stored without your consent. Would you like to learn more about our privacy policy?",
			},
			{
				Queries:  []string{"how to use the app", "user guide"},
				Response: "Our platform is user-friendly. Choose encrypt or decrypt, upload your file or input text, and follow the prompts. Would you like a step-by-step tutorial?",
			},
			{
				Queries:  []string{"what is encryption", "encryption meaning"},
				Response: "Encryption is a process that converts readable data into an unreadable format using a key. Would you like to explore how it applies to your files?",
			},
			{
				Queries:  []string{"can I use it on mobile", "mobile support"},
				Response: "Yes, our web app is optimized for mobile devices. Would you like help accessing features on your phone?",
			},
			{
				Queries:  []string{"how to share encrypted files"},
				Response: "You can securely share encrypted files by exporting and sending the ciphertext and key separately. Would you like tips for secure sharing?",
			},
			{
				Queries:  []string{"password protection", "add password"},
				Response: "You can add a password to your encryption for added security. Would you like to see how to set that up?",
			},
			{
				Queries:  []string{"decryption failed", "can't decrypt"},
				Response: "Decryption may fail due to an incorrect key or corrupted file. Would you like troubleshooting support?",
			},
			{
				Queries:  []string{"is it free", "cost of service"},
				Response: "Our basic encryption and decryption tools are free to use. Would you like to explore any premium features?",
			},
			{
				Queries:  []string{"support", "need help"},
				Response: "I'm here to assist you. What do you need help with specifically: text, image, or audio encryption?",
			},
		},
	}
}

// ScriptFromConfig overlays configured texts on the built-in script
func ScriptFromConfig(cfg config.ScriptConfig) Script {
	s := DefaultScript()

	override(&s.Welcome, cfg.Welcome)
	override(&s.IdleReminder, cfg.IdleReminder)
	override(&s.ErrorReply, cfg.ErrorReply)
	override(&s.FallbackReply, cfg.FallbackReply)
	override(&s.LowConfidenceMarker, cfg.LowConfidenceMarker)
	override(&s.EndConfirmation, cfg.EndConfirmation)
	override(&s.UserLabel, cfg.UserLabel)
	override(&s.BotLabel, cfg.BotLabel)
	override(&s.DefaultResponse, cfg.DefaultResponse)

	if len(cfg.QuickReplies) > 0 {
		s.QuickReplies = append([]domain.QuickReply(nil), cfg.QuickReplies...)
	}
	if len(cfg.Examples) > 0 {
		s.Examples = make([]llm.Example, 0, len(cfg.Examples))
		for _, ex := range cfg.Examples {
			s.Examples = append(s.Examples, llm.Example{Queries: ex.Queries, Response: ex.Response})
		}
	}

	return s
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// quickReply looks up an offered reply by its label
func quickReply(offered []domain.QuickReply, label string) (domain.QuickReply, bool) {
	for _, qr := range offered {
		if qr.Label == label {
			return qr, true
		}
	}
	return domain.QuickReply{}, false
}
