package service

import (
	"fmt"

	"github.com/codevault-labs/postgen/internal/models"
)

// contentTypeInstructions maps a post's content length class to the prompt
// instruction handed to the text model.
var contentTypeInstructions = map[models.ContentType]string{
	models.ContentTypeLongForm:  "The generated content should be a long form post suitable for blogs or articles.",
	models.ContentTypeShortForm: "The generated content should be a short form post suitable for social media or quick reads.",
}

const textAndImagePromptTemplate = `You are a professional social media content creator. Generate %d different variations of a social media post based on the following context.

CONTEXT:
%s

LANGUAGE AND TONE REQUIREMENTS:
%s

TYPE OF CONTENT TO GENERATE:
%s

INSTRUCTIONS:
1. Create %d unique variations of the post text
2. Each variation should have a different style while maintaining the same core message
3. Include relevant hashtags where appropriate
4. Keep each post engaging and suitable for social media
5. Also provide relevant %d image generation prompts/tags that would create compelling visual content related to that specific variation

IMPORTANT - OUTPUT FORMAT:
Do not having trailing commas or syntax errors in the JSON.
You MUST respond with ONLY a valid JSON object in this exact format (no code blocks, no markdown, no extra text):

IMAGE PROMPT RULES:
- The image prompts should be general enough to apply to the overall post content, not tied to specific text variations.
- Each image prompt should inspire a unique visual representation of the post's theme.
- Avoid overly specific details that limit creative interpretation.
- Do not generate prompts that any way indicate charts, graphs, or infographics.

An Example Response if 2 unique variations of the post text and 3 image generation prompts are requested:
{
  "variations": [
    {
      "variation_number": 1,
      "text_content": "The actual post text for variation 1"
    },
    {
      "variation_number": 2,
      "text_content": "The actual post text for variation 2"
    }
  ],
  "image_prompts":[
    "prompt 1 for overall post",
    "prompt 2 for overall post",
    "prompt 3 for overall post"
  ]
}

Generate ONLY %d text variations and ONLY %d image prompts now.`

const imagePromptTemplate = `Generate an image based on the following description:

POST CONTEXT:
%s

IMAGE GENERATION PROMPT:
%s

STYLE REQUIREMENTS:
- Professional and suitable for social media
- High quality and visually appealing
- Relevant to the post content
- Eye-catching and engaging

Create the image now.`

// buildGenerationPrompt assembles the combined text-and-image-prompt request
// for one post. The requested counts are advisory to the model; the parsed
// response decides what actually gets persisted.
func buildGenerationPrompt(post *models.Post, context string) string {
	instruction, ok := contentTypeInstructions[post.ContentType]
	if !ok {
		instruction = contentTypeInstructions[models.ContentTypeLongForm]
	}

	return fmt.Sprintf(textAndImagePromptTemplate,
		post.TextVariationsCount,
		context,
		post.LanguageTone,
		instruction,
		post.TextVariationsCount,
		post.MediaVariationsCount,
		post.TextVariationsCount,
		post.MediaVariationsCount,
	)
}

// buildImagePrompt combines one image prompt with a summary of the generated
// text bodies so images stay thematically consistent with the text.
func buildImagePrompt(postText, imagePrompt string) string {
	return fmt.Sprintf(imagePromptTemplate, postText, imagePrompt)
}
