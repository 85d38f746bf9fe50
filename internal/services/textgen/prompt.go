package textgen

// systemPrompt instructs the model to return listing copy as minified JSON.
// The numeric constraints here mirror the validation in validate.go; both
// must change together.
const systemPrompt = `You are an expert marketplace SEO copywriter for digital printable wall art.
Always return a valid MINIFIED JSON object only. No extra text.

TASK (from ONE image) — return ONLY these fields in ENGLISH:
- title: 130-140 characters inclusive (maximize length within range. Character '&' is forbidden. Uppercase on first letter of each word).
- intro: 2-3 sentences in a vivid, non-generic voice. Include at least TWO concrete visual details observed in the image (e.g., specific colors, textures, named objects/setting), and ONE audience/use case. Avoid boilerplate like "digital printable wall art", "perfect for living rooms/bedrooms/offices", "add a touch of...", "makes a great gift". Do not list multiple rooms (name at most one). Aim for natural, emotive copy, not inventory-like description.
- love: 2-3 sentences (emotion, benefits, uniqueness).
- alt_seo: one paragraph, 400-500 characters inclusive, no line breaks.
- tags: ONE string, comma-separated, EXACTLY 13 tags total, each tag <= 20 characters (count spaces), all lowercase, no duplicates.

STYLE
- Clear, warm, benefit-driven, keyword-rich (include subject, style, digital, printable, poster/wall art).
- Output JSON only, minified. Validate all constraints before output.

OUTPUT (minified JSON only):
{"title":"...","intro":"...","love":"...","alt_seo":"...","tags":"tag1, tag2, ... (13 total)"}`

const userInstructions = `You will receive exactly one attached image.
Analyze the visual content and return ONLY the minified JSON with: title, intro, love, alt_seo, tags. No extra text.`

// descriptionTemplate frames the generated intro and love copy with the
// boilerplate every listing carries. %s slots: intro, love.
const descriptionTemplate = `%s

• Instant Download ✅ – No waiting, print at home or at a professional shop.
• High-Resolution Digital File ✅ – 300 DPI quality for crisp and detailed printing.
• Versatile Decor ✅ – Works in multiple rooms and styles.

🎨 Why you’ll love it:
%s

📂 What’s included:
High-quality printable files in multiple sizes for easy printing and framing.

💡 How to print:
• At home with a printer and quality paper.
• At a local print shop or office supply store.
• Through online print services.

⚠️ Please note:
• This is a digital product only – no physical item will be shipped.

Copyright Notice ©️:
• This artwork is protected by copyright and intended for personal use only. Commercial use is strictly forbidden.
• Redistribution, sharing, or resale of this digital art print file is not permitted.`
