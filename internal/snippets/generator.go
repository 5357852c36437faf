package snippets

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/ckpayment/ckmodal/internal/modal"
)

const (
	DefaultSDKURL     = "https://unpkg.com/@ckpayment/sdk@latest/dist/ckpay.js"
	DefaultButtonText = "Pay with crypto"
)

type Framework string

const (
	FrameworkHTML  Framework = "html"
	FrameworkReact Framework = "react"
	FrameworkVue   Framework = "vue"
)

// Frameworks lists every supported framework in display order.
var Frameworks = []Framework{FrameworkHTML, FrameworkReact, FrameworkVue}

// ParseFramework accepts a framework name, case-insensitively. Empty means html.
func ParseFramework(s string) (Framework, error) {
	if s == "" {
		return FrameworkHTML, nil
	}
	for _, f := range Frameworks {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown framework %q (want html, react or vue)", s)
}

// EmbedOptions controls how the snippet loads the SDK and labels the trigger.
type EmbedOptions struct {
	SDKURL     string
	ButtonText string
}

func (o EmbedOptions) withDefaults() EmbedOptions {
	if o.SDKURL == "" {
		o.SDKURL = DefaultSDKURL
	}
	if o.ButtonText == "" {
		o.ButtonText = DefaultButtonText
	}
	return o
}

type SnippetFile struct {
	Filename string
	Content  string
}

// templateData is everything a snippet may reference. Only public values
// belong here: a snippet is pasted into third-party pages.
type templateData struct {
	ModalID    string
	SDKURL     string
	ButtonText string
}

func buildTemplateData(cfg modal.Config, opts EmbedOptions) templateData {
	opts = opts.withDefaults()
	return templateData{
		ModalID:    cfg.ID,
		SDKURL:     opts.SDKURL,
		ButtonText: opts.ButtonText,
	}
}

// Generate renders the snippet for a framework. Unknown frameworks fall
// back to plain HTML.
func Generate(framework Framework, cfg modal.Config, opts EmbedOptions) ([]SnippetFile, error) {
	data := buildTemplateData(cfg, opts)

	switch framework {
	case FrameworkReact:
		return generateReact(data)
	case FrameworkVue:
		return generateVue(data)
	default:
		return generateHTML(data)
	}
}

func renderTemplate(name, content string, data templateData) (string, error) {
	tmpl, err := template.New(name).Parse(content)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func generateHTML(data templateData) ([]SnippetFile, error) {
	var buf bytes.Buffer
	if err := embedTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}

	return []SnippetFile{
		{Filename: "ckpay-modal.html", Content: buf.String()},
	}, nil
}

func generateReact(data templateData) ([]SnippetFile, error) {
	component := `'use client';

import { useEffect } from 'react';

const SDK_URL = '{{js .SDKURL}}';
const MODAL_ID = '{{js .ModalID}}';

declare global {
  interface Window {
    ckPay?: { init(opts: { modalId: string }): void; open(modalId: string): void };
  }
}

function loadSDK(): Promise<void> {
  if (window.ckPay) return Promise.resolve();
  return new Promise((resolve, reject) => {
    const script = document.createElement('script');
    script.src = SDK_URL;
    script.onload = () => resolve();
    script.onerror = () => reject(new Error('failed to load ckPay SDK'));
    document.head.appendChild(script);
  });
}

interface Props {
  className?: string;
  children?: React.ReactNode;
}

export function CkPayButton({ className, children }: Props) {
  useEffect(() => {
    loadSDK()
      .then(() => window.ckPay?.init({ modalId: MODAL_ID }))
      .catch(() => {});
  }, []);

  return (
    <button type="button" className={className} onClick={() => window.ckPay?.open(MODAL_ID)}>
      {children ?? '{{js .ButtonText}}'}
    </button>
  );
}
`
	rendered, err := renderTemplate("CkPayButton", component, data)
	if err != nil {
		return nil, err
	}

	usage := `// Example usage in your component:
import { CkPayButton } from './CkPayButton';

export default function Checkout() {
  return <CkPayButton />;
}
`

	return []SnippetFile{
		{Filename: "CkPayButton.tsx", Content: rendered},
		{Filename: "usage.tsx", Content: usage},
	}, nil
}

func generateVue(data templateData) ([]SnippetFile, error) {
	content := `<template>
  <button type="button" @click="open" v-text="label"></button>
</template>

<script setup lang="ts">
import { onMounted } from 'vue';

const SDK_URL = '{{js .SDKURL}}';
const MODAL_ID = '{{js .ModalID}}';
const label = '{{js .ButtonText}}';

function loadSDK(): Promise<void> {
  const w = window as any;
  if (w.ckPay) return Promise.resolve();
  return new Promise((resolve, reject) => {
    const script = document.createElement('script');
    script.src = SDK_URL;
    script.onload = () => resolve();
    script.onerror = () => reject(new Error('failed to load ckPay SDK'));
    document.head.appendChild(script);
  });
}

function open() {
  (window as any).ckPay?.open(MODAL_ID);
}

onMounted(() => {
  loadSDK()
    .then(() => (window as any).ckPay?.init({ modalId: MODAL_ID }))
    .catch(() => {});
});
</script>
`
	rendered, err := renderTemplate("CkPayButton.vue", content, data)
	if err != nil {
		return nil, err
	}

	return []SnippetFile{
		{Filename: "CkPayButton.vue", Content: rendered},
	}, nil
}
